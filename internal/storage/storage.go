// Package storage defines the persistence interface for documents, the position-bias
// curve and load history.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/rankdaora/internal/models"
	"github.com/hyperjump/rankdaora/internal/popularity"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// LoadRun records one completed dataset load.
type LoadRun struct {
	ID            int64     `json:"id"`
	Dataset       string    `json:"dataset"`
	StartedAt     time.Time `json:"started_at"`
	Documents     int       `json:"documents"`
	Ingested      int       `json:"ingested"`
	Prior         float64   `json:"prior"`
	ReferenceTime time.Time `json:"reference_time"`
	DurationMs    int64     `json:"duration_ms"`
}

// Storage defines document, bias-curve and load-run persistence operations.
type Storage interface {
	// Document operations
	UpsertDocuments(ctx context.Context, docs []*models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteAllDocuments(ctx context.Context) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Position bias
	SaveBiasCurve(ctx context.Context, bias *popularity.PositionBias) error
	LoadBiasCurve(ctx context.Context) (*popularity.PositionBias, error)

	// Load history
	RecordLoadRun(ctx context.Context, run *LoadRun) error
	LastLoadRun(ctx context.Context) (*LoadRun, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)

	Close() error
}
