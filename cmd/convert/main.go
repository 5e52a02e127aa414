// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/quixsi/rsvp/internal/db/open"
	"github.com/quixsi/rsvp/internal/migrate"
)

func main() {
	var (
		from = flag.String("from", "csv://rsvps.csv", "source connection string")
		to   = flag.String("to", "kvdb://rsvps.db", "destination connection string")
	)
	flag.Parse()

	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{})
	logger := slog.New(jsonHandler)

	src, closeSrc, err := open.RSVPStore(*from)
	if err != nil {
		logger.Error("could not open source", "db", *from, "error", err)
		os.Exit(1)
	}
	defer closeSrc()

	dst, closeDst, err := open.RSVPStore(*to)
	if err != nil {
		logger.Error("could not open destination", "db", *to, "error", err)
		os.Exit(1)
	}
	defer closeDst()

	logger.Info("start converting", "from", *from, "to", *to)
	n, err := migrate.Into(context.Background(), dst, src)
	if err != nil {
		logger.Error("converting failed", "copied", n, "error", err)
		closeDst()
		os.Exit(1)
	}
	logger.Info("finished converting", "copied", n)
}
