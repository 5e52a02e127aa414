// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

// Package open picks an RSVP store backend from a connection string such as
// csv://rsvps.csv, json://rsvps.json or kvdb://data/rsvps.db.
package open

import (
	"fmt"
	"net/url"

	bolt "go.etcd.io/bbolt"

	"github.com/quixsi/rsvp/internal/db"
	"github.com/quixsi/rsvp/internal/db/csvdb"
	"github.com/quixsi/rsvp/internal/db/jsondb"
	"github.com/quixsi/rsvp/internal/db/kvdb"
)

const (
	SchemeCSV  = "csv"
	SchemeKVDB = "kvdb"
	SchemeJSON = "json"
)

// RSVPStore opens the backend named by dsn. The returned close function
// releases the backend and must be called when done.
func RSVPStore(dsn string) (db.RSVPStore, func() error, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to parse db connection string: %w", err)
	}
	path := u.Host + u.Path
	if path == "" {
		return nil, nil, fmt.Errorf("db connection string %q has no path", dsn)
	}

	switch u.Scheme {
	case SchemeCSV:
		store, err := csvdb.NewRSVPStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	case SchemeJSON:
		store, err := jsondb.NewRSVPStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	case SchemeKVDB:
		bdb, err := bolt.Open(path, 0600, nil)
		if err != nil {
			return nil, nil, err
		}
		store, err := kvdb.NewRSVPStore(bdb)
		if err != nil {
			bdb.Close()
			return nil, nil, err
		}
		return store, bdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", u.Scheme)
	}
}
