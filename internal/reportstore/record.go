package reportstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Status is the outcome persisted for a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned by Get for an unknown token.
var ErrNotFound = errors.New("report not found")

// Record is one persisted inspection run.
type Record struct {
	Token           string          `json:"token"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	VehicleType     string          `json:"vehicle_type"`
	Scenario        string          `json:"scenario"`
	Severity        string          `json:"severity,omitempty"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLevel string          `json:"confidence_level,omitempty"`
	ErrorCategory   string          `json:"error_category,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	Report          json.RawMessage `json:"report,omitempty"`
}

// ListOptions filters List results. Zero values mean no filter.
type ListOptions struct {
	Status Status
	Limit  int
}

// Store is implemented by the SQLite and in-memory backends.
type Store interface {
	// Put inserts or replaces the record for rec.Token.
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, token string) (Record, error)
	// List returns records newest first.
	List(ctx context.Context, opts ListOptions) ([]Record, error)
	// Delete reports whether a record existed.
	Delete(ctx context.Context, token string) (bool, error)
	Close() error
}

func stamp(rec Record, now time.Time) (Record, error) {
	if rec.Token == "" {
		return rec, errors.New("report token required")
	}
	if rec.Status == "" {
		rec.Status = StatusCompleted
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return rec, nil
}
