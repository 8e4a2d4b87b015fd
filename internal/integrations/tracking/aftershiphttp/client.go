package aftershiphttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/BearBump/PackBox/internal/integrations/tracking"
	"github.com/BearBump/PackBox/internal/models"
	"github.com/pkg/errors"
)

// AfterShip reports "tracking number not found / invalid" with this meta code.
const metaCodeNotFound = 4004

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.aftership.com/v4"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type createTrackingReq struct {
	Tracking struct {
		TrackingNumber string `json:"tracking_number"`
	} `json:"tracking"`
}

type aftershipResp struct {
	Meta struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"meta"`
	Data struct {
		Tracking struct {
			Tag         string              `json:"tag"`
			Checkpoints []models.Checkpoint `json:"checkpoints"`
		} `json:"tracking"`
	} `json:"data"`
}

func (c *Client) CreateTracking(ctx context.Context, code string) (tracking.TrackingData, error) {
	var reqBody createTrackingReq
	reqBody.Tracking.TrackingNumber = code

	b, err := json.Marshal(reqBody)
	if err != nil {
		return tracking.TrackingData{}, errors.Wrap(models.ErrProviderFailure, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/trackings", bytes.NewReader(b))
	if err != nil {
		return tracking.TrackingData{}, errors.Wrap(models.ErrProviderFailure, err.Error())
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return tracking.TrackingData{}, errors.Wrapf(models.ErrProviderFailure, "aftership create tracking: %v", err)
	}
	defer resp.Body.Close()

	var r aftershipResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return tracking.TrackingData{}, errors.Wrapf(models.ErrProviderFailure, "aftership decode: %v", err)
	}

	if resp.StatusCode/100 != 2 {
		if r.Meta.Code == metaCodeNotFound {
			return tracking.TrackingData{}, errors.Wrap(models.ErrNotFound, "tracking code not recognized by provider")
		}
		return tracking.TrackingData{}, errors.Wrapf(models.ErrProviderFailure,
			"aftership http %d meta=%d: %s", resp.StatusCode, r.Meta.Code, r.Meta.Message)
	}

	timeline := r.Data.Tracking.Checkpoints
	if timeline == nil {
		timeline = []models.Checkpoint{}
	}
	return tracking.TrackingData{
		Status:   r.Data.Tracking.Tag,
		Timeline: timeline,
	}, nil
}

func (c *Client) DeleteTracking(ctx context.Context, code string) error {
	// We never persist the carrier slug, so autodetect is used for deletion too.
	url := fmt.Sprintf("%s/trackings/autodetect/%s", c.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "aftership delete tracking")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return errors.Errorf("aftership delete tracking http %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("aftership-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}
