// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/quixsi/rsvp/internal/db"
)

var ErrNotImporter = errors.New("destination cannot import records")

// Into copies every record of src to the end of dst in order and returns the
// number of records copied.
func Into(ctx context.Context, dst db.RSVPStore, src db.RSVPStore) (int, error) {
	importer, ok := dst.(db.RSVPImporter)
	if !ok {
		return 0, ErrNotImporter
	}
	if err := dst.Initialize(ctx); err != nil {
		return 0, err
	}

	rsvps, err := src.ListRSVPs(ctx)
	if err != nil {
		return 0, err
	}
	for i, r := range rsvps {
		if err := importer.ImportRSVP(ctx, r); err != nil {
			return i, fmt.Errorf("record %d (%s): %w", i, r.FormattedTimestamp(), err)
		}
	}
	return len(rsvps), nil
}
