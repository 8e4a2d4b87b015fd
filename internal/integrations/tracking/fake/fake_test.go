package fake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeProvider_CreateTracking(t *testing.T) {
	p := New()
	data, err := p.CreateTracking(context.Background(), "AB123456BR")
	require.NoError(t, err)
	require.NotEmpty(t, data.Status)
	require.Len(t, data.Timeline, 1)

	again, err := p.CreateTracking(context.Background(), "AB123456BR")
	require.NoError(t, err)
	require.Equal(t, data.Status, again.Status)
}

func TestFakeProvider_DeleteTracking(t *testing.T) {
	require.NoError(t, New().DeleteTracking(context.Background(), "X"))
}
