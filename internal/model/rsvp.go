// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the format of the timestamp column, local time with
// second precision.
const TimestampLayout = "2006-01-02 15:04:05"

// DefaultGuests is the guest count offered by the form when nothing is entered.
const DefaultGuests = 1

// RSVP is one response to the invitation. Records are never updated once
// written.
type RSVP struct {
	// ID is only set by backends that keep an identity per record.
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name" form:"name"`
	Guests    int       `json:"guests" form:"guests"`
	Message   string    `json:"message" form:"message"`
}

// FormattedTimestamp renders the timestamp the way it is stored.
func (r *RSVP) FormattedTimestamp() string {
	return r.Timestamp.Format(TimestampLayout)
}

// NormalizeMessage turns CRLF line breaks into LF. Stored messages only ever
// contain LF, since CSV readers fold CRLF inside quoted fields.
func NormalizeMessage(msg string) string {
	return strings.ReplaceAll(msg, "\r\n", "\n")
}

// TotalGuests sums the guest counts of all given responses.
func TotalGuests(rsvps []*RSVP) int {
	var n int
	for _, r := range rsvps {
		n += r.Guests
	}
	return n
}
