// Package store persists the append-only consultation log. Records are
// written once per inquiry and never mutated; an inquiry whose record cannot
// be written is aborted before any report is produced.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ajuntament-olot/pla-usos/internal/model"
)

// ErrWriteFailed is returned when a consultation record cannot be written.
var ErrWriteFailed = eris.New("store: consultation write failed")

// ErrNotFound is returned when no consultation exists for an id.
var ErrNotFound = eris.New("store: consultation not found")

// Filter specifies criteria for listing consultations.
type Filter struct {
	DomCode string `json:"dom_code,omitempty"`
	Verdict string `json:"verdict,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the consultation log.
type Store interface {
	// InsertConsultation writes one record atomically and returns its
	// generated id, usable for later report regeneration.
	InsertConsultation(ctx context.Context, c model.Consultation) (string, error)
	GetConsultation(ctx context.Context, id string) (*model.Consultation, error)
	ListConsultations(ctx context.Context, f Filter) ([]model.Consultation, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
