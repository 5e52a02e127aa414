// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

// Package rsvpcsv reads and writes RSVP records as comma separated text.
// The same format is used for the stored file and for downloads.
package rsvpcsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/quixsi/rsvp/internal/model"
)

// ContentType of exported data.
const ContentType = "text/csv"

// Header names the columns in file order.
var Header = []string{"timestamp", "name", "guests", "message"}

var ErrMalformed = errors.New("rsvpcsv: malformed data")

// Export writes the header followed by one line per record. CRLF line breaks
// inside messages are written as LF.
func Export(w io.Writer, rsvps []*model.RSVP) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rsvps {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Bytes is Export into a buffer.
func Bytes(rsvps []*model.RSVP) ([]byte, error) {
	var buf bytes.Buffer
	if err := Export(&buf, rsvps); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AppendRow writes a single record without a header.
func AppendRow(w io.Writer, r *model.RSVP) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(row(r)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// HeaderLine returns the encoded header row including the line break.
func HeaderLine() []byte {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write(Header)
	cw.Flush()
	return buf.Bytes()
}

// Parse reads data produced by Export. Empty input yields no records.
// Timestamps are interpreted in the local time zone.
func Parse(r io.Reader) ([]*model.RSVP, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformed, err)
	}
	if !slices.Equal(head, Header) {
		return nil, fmt.Errorf("%w: unexpected header %q", ErrMalformed, head)
	}

	var rsvps []*model.RSVP
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		line, _ := cr.FieldPos(0)
		rsvp, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		rsvps = append(rsvps, rsvp)
	}
	return rsvps, nil
}

func row(r *model.RSVP) []string {
	return []string{
		r.FormattedTimestamp(),
		r.Name,
		strconv.Itoa(r.Guests),
		model.NormalizeMessage(r.Message),
	}
}

func parseRow(rec []string) (*model.RSVP, error) {
	ts, err := time.ParseInLocation(model.TimestampLayout, rec[0], time.Local)
	if err != nil {
		return nil, err
	}
	guests, err := strconv.Atoi(rec[2])
	if err != nil {
		return nil, err
	}
	return &model.RSVP{
		Timestamp: ts,
		Name:      rec[1],
		Guests:    guests,
		Message:   rec[3],
	}, nil
}
