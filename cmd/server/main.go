// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/quixsi/rsvp/internal/config"
	"github.com/quixsi/rsvp/internal/db/open"
	"github.com/quixsi/rsvp/internal/server"
)

func main() {
	var (
		serviceName    = flag.String("service-name", "rsvp", "otel service name")
		addr           = flag.String("addr", "0.0.0.0:8080", "default server address")
		dbStr          = flag.String("db", "csv://rsvps.csv", "database connection string, csv://<file>, json://<file> or kvdb://<file>")
		otlpAddr       = flag.String("otlp-grpc", "", "default otlp/gRPC address, by default disabled. Example value: localhost:4317")
		logLevelArg    = flag.String("log-level", "INFO", "log level")
		staticDir      = flag.String("static-dir", "", "path to static directory")
		eventFile      = flag.String("event", "", "path to the event description (yaml)")
		deadline       = flag.String("deadline", "", "deadline in format: 01 May 24 10:00 CET")
		exportFilename = flag.String("export-filename", "", "file name offered for the csv download")
	)
	flag.Parse()

	var logLevel slog.Level
	err := logLevel.UnmarshalText([]byte(*logLevelArg))
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(jsonHandler)
	if err != nil {
		logger.Error("unable to parse log level", "level-input", *logLevelArg, "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logger)
	logger.Info("start and listen", "address", *addr)
	logger.Info("otlp/gRPC", "address", *otlpAddr, "service", *serviceName)
	logger.Info("static-dir", "directory", *staticDir)

	if *otlpAddr != "" {
		shutdown := setupOTLP(*otlpAddr, logger)
		defer shutdown()
	}

	cfg, err := config.Load(*eventFile)
	if err != nil {
		logger.Error("unable to load event config", "path", *eventFile, "error", err)
		os.Exit(1)
	}
	if *exportFilename != "" {
		cfg.ExportFilename = *exportFilename
	}
	if *deadline != "" {
		cfg.Event.Deadline, err = time.Parse(time.RFC822, *deadline)
		if err != nil {
			logger.Error("failed to parse deadline", "error", err)
			os.Exit(1)
		}
		logger.Info("deadline set to", "date", *deadline)
	}

	checker, err := cfg.Checker()
	if err != nil {
		logger.Error("unable to set up admin credentials", "error", err)
		os.Exit(1)
	}
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		logger.Warn("no admin password configured, admin view disabled",
			"env", []string{config.EnvPassword, config.EnvPasswordHash})
	}

	store, closeStore, err := open.RSVPStore(*dbStr)
	if err != nil {
		logger.Error("could not initialize rsvp store", "db", *dbStr, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if err := store.Initialize(context.Background()); err != nil {
		logger.Error("could not initialize rsvp store", "db", *dbStr, "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr: *addr,
		Handler: server.NewServer(
			*serviceName,
			*staticDir,
			&cfg.Event,
			cfg.ExportFilename,
			store,
			checker,
		),
	}

	if err := srv.ListenAndServe(); err != nil {
		logger.Error("error during listen and serve", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown")
}

func setupOTLP(otlpAddr string, logger *slog.Logger) func() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	grpcOptions := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithBlock()}
	conn, err := grpc.DialContext(ctx, otlpAddr, grpcOptions...)
	if err != nil {
		logger.Error("failed to create gRPC connection to collector", "error", err)
		os.Exit(1)
	}

	// Set up a trace exporter
	otelExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		logger.Error("failed to create trace exporter", "error", err)
		os.Exit(1)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(otelExporter))
	otel.SetTracerProvider(tp)

	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shut down tracer provider", "error", err)
		}
		conn.Close()
	}
}
