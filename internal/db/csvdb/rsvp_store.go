// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package csvdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quixsi/rsvp/internal/db"
	"github.com/quixsi/rsvp/internal/model"
	"github.com/quixsi/rsvp/internal/rsvpcsv"
)

type Option func(*RSVPStore)

// WithClock replaces time.Now as the source of record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *RSVPStore) {
		s.now = now
	}
}

// RSVPStore is an implementation of the db.RSVPStore interface that
// appends responses to a CSV file.
//
// Appends are serialised within one process only. Several processes writing
// the same file may interleave lines.
type RSVPStore struct {
	mu       sync.RWMutex
	filename string
	now      func() time.Time
}

var (
	_ db.RSVPStore    = (*RSVPStore)(nil)
	_ db.RSVPImporter = (*RSVPStore)(nil)
)

// NewRSVPStore creates a store backed by filename. The file is not touched
// until Initialize or AppendRSVP is called.
func NewRSVPStore(filename string, opts ...Option) (*RSVPStore, error) {
	if filename == "" {
		return nil, errors.New("csvdb: filename is required")
	}
	store := &RSVPStore{
		filename: filename,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

func (s *RSVPStore) Filename() string {
	return s.filename
}

// Initialize writes the header row if the file does not exist. An existing
// file is left as it is, whatever it contains.
func (s *RSVPStore) Initialize(ctx context.Context) error {
	var span trace.Span
	_, span = tracer.Start(ctx, "Initialize")
	defer span.End()

	span.AddEvent("Lock")
	s.mu.Lock()
	defer span.AddEvent("Unlock")
	defer s.mu.Unlock()

	created, err := s.createIfNotExists()
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Bool("created", created))
	return nil
}

// AppendRSVP adds one line to the end of the file, creating the file with its
// header first when needed.
func (s *RSVPStore) AppendRSVP(ctx context.Context, name string, guests int, message string) (*model.RSVP, error) {
	var span trace.Span
	_, span = tracer.Start(ctx, "AppendRSVP")
	defer span.End()

	if err := db.ValidateRSVP(name, guests); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.AddEvent("Lock")
	s.mu.Lock()
	defer span.AddEvent("Unlock")
	defer s.mu.Unlock()

	if _, err := s.createIfNotExists(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	rsvp := &model.RSVP{
		Timestamp: s.now().Truncate(time.Second),
		Name:      name,
		Guests:    guests,
		Message:   model.NormalizeMessage(message),
	}
	if err := s.appendLocked(rsvp); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return rsvp, nil
}

// ImportRSVP appends a record as it is, including its timestamp. Line breaks
// in the message are normalized.
func (s *RSVPStore) ImportRSVP(ctx context.Context, rsvp *model.RSVP) error {
	var span trace.Span
	_, span = tracer.Start(ctx, "ImportRSVP")
	defer span.End()

	if err := db.ValidateRSVP(rsvp.Name, rsvp.Guests); err != nil {
		span.RecordError(err)
		return err
	}
	rsvp.Message = model.NormalizeMessage(rsvp.Message)

	span.AddEvent("Lock")
	s.mu.Lock()
	defer span.AddEvent("Unlock")
	defer s.mu.Unlock()

	if _, err := s.createIfNotExists(); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.appendLocked(rsvp); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// appendLocked must be called with the write lock held and the file created.
func (s *RSVPStore) appendLocked(rsvp *model.RSVP) error {
	// encode first so the line reaches the file in a single write
	var line bytes.Buffer
	if err := rsvpcsv.AppendRow(&line, rsvp); err != nil {
		return err
	}
	if err := appendToFile(s.filename, line.Bytes()); err != nil {
		return fmt.Errorf("append rsvp: %w", err)
	}
	return nil
}

// ListRSVPs reads the whole file. A missing file holds no responses.
func (s *RSVPStore) ListRSVPs(ctx context.Context) ([]*model.RSVP, error) {
	var span trace.Span
	_, span = tracer.Start(ctx, "ListRSVPs")
	defer span.End()

	span.AddEvent("RLock")
	s.mu.RLock()
	defer span.AddEvent("RUnlock")
	defer s.mu.RUnlock()

	f, err := os.Open(s.filename)
	if errors.Is(err, os.ErrNotExist) {
		span.AddEvent("file does not exist")
		return []*model.RSVP{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	defer f.Close()

	rsvps, err := rsvpcsv.Parse(f)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	if rsvps == nil {
		rsvps = []*model.RSVP{}
	}
	span.SetAttributes(attribute.Int("rsvps", len(rsvps)))
	return rsvps, nil
}

// createIfNotExists must be called with the write lock held.
func (s *RSVPStore) createIfNotExists() (bool, error) {
	_, err := os.Stat(s.filename)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("initialize: %w", err)
	}
	if dir := filepath.Dir(s.filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("initialize: %w", err)
		}
	}
	if err := renameio.WriteFile(s.filename, rsvpcsv.HeaderLine(), 0644); err != nil {
		return false, fmt.Errorf("initialize: %w", err)
	}
	return true, nil
}

func appendToFile(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
