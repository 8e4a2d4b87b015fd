package models

import (
	"time"

	"github.com/google/uuid"
)

// Package is a tracking record owned by exactly one user. Status and Timeline
// are carrier-defined pass-through values; the pair (OwnerID, TrackingCode)
// is unique, but different owners may track the same code.
type Package struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Name         string
	TrackingCode string
	Status       string
	Timeline     []Checkpoint
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Checkpoint is one carrier timeline event. All fields are optional on the
// wire; we keep them as-is and never interpret them.
type Checkpoint struct {
	Slug           string `json:"slug,omitempty"`
	Tag            string `json:"tag,omitempty"`
	Subtag         string `json:"subtag,omitempty"`
	Status         string `json:"status,omitempty"`
	Message        string `json:"message,omitempty"`
	Location       string `json:"location,omitempty"`
	City           string `json:"city,omitempty"`
	State          string `json:"state,omitempty"`
	Zip            string `json:"zip,omitempty"`
	CountryName    string `json:"country_name,omitempty"`
	CheckpointTime string `json:"checkpoint_time,omitempty"`
}

type PackageCreateInput struct {
	OwnerID      uuid.UUID
	Name         string
	TrackingCode string
	Status       string
	Timeline     []Checkpoint
}

// StatusEvent is one recorded status transition of a package, written by the
// broker consumer after a carrier push was applied.
type StatusEvent struct {
	ID           uint64
	PackageID    uuid.UUID
	TrackingCode string
	Status       string
	OccurredAt   time.Time
	CreatedAt    time.Time
}
