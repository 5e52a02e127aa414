// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package server

import (
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quixsi/rsvp/internal/auth"
	"github.com/quixsi/rsvp/internal/db"
	"github.com/quixsi/rsvp/internal/model"
	"github.com/quixsi/rsvp/internal/server/templates"
)

//go:embed all:static
var staticFS embed.FS

type Option func(*Server)

// WithClock replaces time.Now for deadline and countdown decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func NewServer(
	serviceName string,
	staticDir string,
	event *model.Event,
	exportFilename string,
	store db.RSVPStore,
	checker auth.Checker,
	opts ...Option,
) *Server {
	s := &Server{
		logger:         slog.Default().WithGroup("http"),
		serviceName:    serviceName,
		staticDir:      staticDir,
		event:          event,
		exportFilename: exportFilename,
		store:          store,
		checker:        checker,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

type Server struct {
	serviceName    string
	staticDir      string
	event          *model.Event
	exportFilename string
	logger         *slog.Logger
	store          db.RSVPStore
	checker        auth.Checker
	now            func() time.Time
	handler        http.Handler
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	mux := gin.New()

	middlewares := []gin.HandlerFunc{
		sloggin.NewWithConfig(s.logger,
			sloggin.Config{
				DefaultLevel:     slog.LevelInfo,
				ClientErrorLevel: slog.LevelWarn,
				ServerErrorLevel: slog.LevelError,
			},
		),
		gin.Recovery(), otelgin.Middleware(s.serviceName), slogAddTraceAttributes,
	}
	mux.Use(middlewares...)

	var staticDir fs.FS
	var err error
	switch {
	case s.staticDir != "":
		staticDir = os.DirFS(s.staticDir)
	default:
		staticDir, err = fs.Sub(staticFS, "static")
		if err != nil {
			panic(err)
		}
	}
	mux.StaticFS("/static", http.FS(staticDir))

	rsvpHandler := templates.NewRSVPHandler(s.store, s.event, s.exportFilename, s.now)
	errorHandler := templates.NewErrorHandler(s.event)

	mux.GET("/", rsvpHandler.RenderPage)
	mux.GET("/countdown", rsvpHandler.RenderCountdown)
	mux.POST("/rsvp", readOnly(s.logger, s.event, s.now, errorHandler), rsvpHandler.Submit)

	mux.GET("/admin", func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, "/?page="+templates.PageAdmin)
	})
	adminArea := mux.Group("/admin")
	adminArea.Use(adminOnly(s.checker, rsvpHandler.RenderAdminPrompt))
	adminArea.POST("", rsvpHandler.RenderAdminOverview)
	adminArea.POST("/export", rsvpHandler.Export)

	mux.NoRoute(func(c *gin.Context) {
		errorHandler.Handle(c, model.ErrorReasonInvalidPage)
	})

	return mux
}

// adminOnly lets the request through when the password form field passes
// the checker. Otherwise denied renders the prompt again.
func adminOnly(checker auth.Checker, denied func(c *gin.Context, attempted bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		password := c.PostForm("password")
		if !checker.Check(c.Request.Context(), password) {
			denied(c, password != "")
			c.Abort()
			return
		}
		c.Next()
	}
}

func slogAddTraceAttributes(c *gin.Context) {
	sloggin.AddCustomAttributes(c,
		slog.String("trace-id", trace.SpanFromContext(c.Request.Context()).SpanContext().TraceID().String()),
	)
	sloggin.AddCustomAttributes(c,
		slog.String("span-id", trace.SpanFromContext(c.Request.Context()).SpanContext().SpanID().String()),
	)
	c.Next()
}

// readOnly refuses new responses once the event deadline has passed.
func readOnly(logger *slog.Logger, event *model.Event, now func() time.Time, errorHandler *templates.ErrorHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var span trace.Span
		ctx := c.Request.Context()
		ctx, span = tracer.Start(ctx, "Middleware.readOnly")
		defer span.End()

		if event.DeadlinePassed(now()) && c.Request.Method != http.MethodGet {
			err := errors.New("request method not allowed")
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.WarnContext(ctx, "readOnly-mode", "error", err, "deadline", event.Deadline)
			errorHandler.Handle(c, model.ErrorReasonDeadline)
			return
		}
		c.Next()
	}
}
