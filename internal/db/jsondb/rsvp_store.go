// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/quixsi/rsvp/internal/db"
	"github.com/quixsi/rsvp/internal/model"
)

// RSVPStore is an implementation of the RSVPStore interface
// that keeps all responses in memory and writes them to a JSON file.
type RSVPStore struct {
	mu       sync.RWMutex
	filename string
	rsvps    []*model.RSVP
	now      func() time.Time
}

var (
	_ db.RSVPStore    = (*RSVPStore)(nil)
	_ db.RSVPImporter = (*RSVPStore)(nil)
)

// NewRSVPStore creates a new RSVPStore and loads filename if it exists.
func NewRSVPStore(filename string) (*RSVPStore, error) {
	store := &RSVPStore{
		filename: filename,
		rsvps:    []*model.RSVP{},
		now:      time.Now,
	}
	if err := store.loadFromFile(); err != nil {
		return nil, err
	}
	return store, nil
}

// Initialize writes an empty list if the file does not exist yet.
func (r *RSVPStore) Initialize(ctx context.Context) error {
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Initialize")
	defer span.End()

	span.AddEvent("Lock")
	r.mu.Lock()
	defer span.AddEvent("Unlock")
	defer r.mu.Unlock()

	if _, err := os.Stat(r.filename); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		span.RecordError(err)
		return err
	}
	return r.saveToFile(ctx)
}

func (r *RSVPStore) AppendRSVP(ctx context.Context, name string, guests int, message string) (*model.RSVP, error) {
	var span trace.Span
	ctx, span = tracer.Start(ctx, "AppendRSVP")
	defer span.End()

	rsvp := &model.RSVP{
		Timestamp: r.now().Truncate(time.Second),
		Name:      name,
		Guests:    guests,
		Message:   message,
	}
	if err := r.ImportRSVP(ctx, rsvp); err != nil {
		return nil, err
	}
	return rsvp, nil
}

func (r *RSVPStore) ImportRSVP(ctx context.Context, rsvp *model.RSVP) error {
	var span trace.Span
	ctx, span = tracer.Start(ctx, "ImportRSVP")
	defer span.End()

	if err := db.ValidateRSVP(rsvp.Name, rsvp.Guests); err != nil {
		span.RecordError(err)
		return err
	}
	rsvp.Message = model.NormalizeMessage(rsvp.Message)

	span.AddEvent("Lock")
	r.mu.Lock()
	defer span.AddEvent("Unlock")
	defer r.mu.Unlock()

	r.rsvps = append(r.rsvps, rsvp)
	span.AddEvent("save to file")
	if err := r.saveToFile(ctx); err != nil {
		// keep memory and file in step
		r.rsvps = r.rsvps[:len(r.rsvps)-1]
		return err
	}
	return nil
}

func (r *RSVPStore) ListRSVPs(ctx context.Context) ([]*model.RSVP, error) {
	var span trace.Span
	_, span = tracer.Start(ctx, "ListRSVPs")
	defer span.End()

	span.AddEvent("RLock")
	r.mu.RLock()
	defer span.AddEvent("RUnlock")
	defer r.mu.RUnlock()

	res := make([]*model.RSVP, 0, len(r.rsvps))
	for _, rsvp := range r.rsvps {
		c := *rsvp
		res = append(res, &c)
	}
	return res, nil
}

// saveToFile replaces the JSON file with the current list.
func (r *RSVPStore) saveToFile(ctx context.Context) error {
	var span trace.Span
	_, span = tracer.Start(ctx, "SaveToFile")
	defer span.End()

	fileData, err := json.MarshalIndent(r.rsvps, "", "  ")
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.filename), 0755); err != nil {
		span.RecordError(err)
		return fmt.Errorf("create directory: %w", err)
	}
	if err := renameio.WriteFile(r.filename, fileData, 0644); err != nil {
		span.RecordError(err)
		return fmt.Errorf("save rsvps: %w", err)
	}
	return nil
}

// loadFromFile loads rsvp data from the JSON file into the store.
func (r *RSVPStore) loadFromFile() error {
	fileData, err := os.ReadFile(r.filename)
	if errors.Is(err, os.ErrNotExist) {
		// File does not exist, no rsvps to load
		return nil
	}
	if err != nil {
		return err
	}
	if len(fileData) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := json.Unmarshal(fileData, &r.rsvps); err != nil {
		return fmt.Errorf("load rsvps: %w", err)
	}
	for _, rsvp := range r.rsvps {
		rsvp.Timestamp = rsvp.Timestamp.Local()
	}
	return nil
}
