// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quixsi/rsvp/internal/model"
)

// ErrInvalidRSVP is returned when a record without a name or with a negative
// guest count is appended.
var ErrInvalidRSVP = errors.New("invalid rsvp")

// RSVPStore keeps responses in submission order.
type RSVPStore interface {
	// Initialize creates the backing storage if it does not exist yet.
	// Calling it again leaves existing data untouched.
	Initialize(context.Context) error
	// AppendRSVP stamps a new response with the current time and stores it.
	// CRLF line breaks in the message are stored as LF.
	AppendRSVP(ctx context.Context, name string, guests int, message string) (*model.RSVP, error)
	// ListRSVPs returns all responses in the order they were appended.
	ListRSVPs(context.Context) ([]*model.RSVP, error)
}

// RSVPImporter is implemented by stores that can take over records written
// elsewhere, keeping their original timestamp.
type RSVPImporter interface {
	ImportRSVP(context.Context, *model.RSVP) error
}

// ValidateRSVP checks the fields a store accepts.
func ValidateRSVP(name string, guests int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRSVP)
	}
	if guests < 0 {
		return fmt.Errorf("%w: guests must not be negative", ErrInvalidRSVP)
	}
	return nil
}
