// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package templates

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quixsi/rsvp/internal/db"
	"github.com/quixsi/rsvp/internal/model"
	"github.com/quixsi/rsvp/internal/parser/form"
	"github.com/quixsi/rsvp/internal/rsvpcsv"
)

//go:embed *.html
var templates embed.FS

const (
	PageForm  = "form"
	PageAdmin = "admin"
)

const (
	msgFormInvalid       = "Your response could not be read. Please try again."
	msgNameRequired      = "Please enter your full name to RSVP."
	msgGuestsInvalid     = "Number of guests must be a whole number, 0 or more."
	msgSubmitted         = "RSVP submitted successfully! Thank you!"
	msgIncorrectPassword = "Incorrect password. Please try again."
)

type submission struct {
	Name    string `form:"name"`
	Guests  int    `form:"guests" default:"1"`
	Message string `form:"message"`
}

func NewRSVPHandler(
	store db.RSVPStore,
	event *model.Event,
	exportFilename string,
	now func() time.Time,
) *RSVPHandler {
	coreTemplates := []string{"main.html", "main.style.html", "countdown.html"}

	return &RSVPHandler{
		tmplForm:       template.Must(template.ParseFS(templates, append(coreTemplates, "form.html")...)),
		tmplAdmin:      template.Must(template.ParseFS(templates, append(coreTemplates, "admin.html")...)),
		tmplCountdown:  template.Must(template.ParseFS(templates, "countdown.html")),
		store:          store,
		event:          event,
		exportFilename: exportFilename,
		now:            now,
		errorHandler:   NewErrorHandler(event),
		logger:         slog.Default().WithGroup("http"),
	}
}

type RSVPHandler struct {
	tmplForm       *template.Template
	tmplAdmin      *template.Template
	tmplCountdown  *template.Template
	store          db.RSVPStore
	event          *model.Event
	exportFilename string
	now            func() time.Time
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// RenderPage serves the form or the admin prompt depending on the page query
// parameter.
func (h *RSVPHandler) RenderPage(c *gin.Context) {
	switch page := c.DefaultQuery("page", PageForm); page {
	case PageForm:
		h.renderForm(c, http.StatusOK, gin.H{"values": submission{Guests: model.DefaultGuests}})
	case PageAdmin:
		h.RenderAdminPrompt(c, false)
	default:
		h.logger.WarnContext(c.Request.Context(), "invalid page requested", "page", page)
		h.errorHandler.Handle(c, model.ErrorReasonInvalidPage)
	}
}

func (h *RSVPHandler) Submit(c *gin.Context) {
	var span trace.Span
	ctx := c.Request.Context()
	ctx, span = tracer.Start(ctx, "RSVPHandler.Submit")
	defer span.End()

	if err := c.Request.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "could not parse form", "error", err)
		h.renderForm(c, http.StatusBadRequest, gin.H{"error": msgFormInvalid})
		return
	}

	var s submission
	if err := form.Unmarshal(c.Request.PostForm, &s); err != nil {
		span.RecordError(err)
		msg := msgFormInvalid
		var fieldErr *form.FieldError
		if errors.As(err, &fieldErr) && fieldErr.Field == "guests" {
			msg = msgGuestsInvalid
		}
		h.renderForm(c, http.StatusBadRequest, gin.H{"error": msg, "values": s})
		return
	}
	s.Name = strings.TrimSpace(s.Name)
	s.Message = model.NormalizeMessage(s.Message)

	switch {
	case s.Name == "":
		h.renderForm(c, http.StatusBadRequest, gin.H{"error": msgNameRequired, "values": s})
		return
	case s.Guests < 0:
		h.renderForm(c, http.StatusBadRequest, gin.H{"error": msgGuestsInvalid, "values": s})
		return
	}

	if err := h.store.Initialize(ctx); err != nil {
		h.fail(c, span, "could not initialize rsvp store", err)
		return
	}
	rsvp, err := h.store.AppendRSVP(ctx, s.Name, s.Guests, s.Message)
	if errors.Is(err, db.ErrInvalidRSVP) {
		h.renderForm(c, http.StatusBadRequest, gin.H{"error": msgNameRequired, "values": s})
		return
	}
	if err != nil {
		h.fail(c, span, "could not store rsvp", err)
		return
	}

	span.SetAttributes(attribute.Int("guests", rsvp.Guests))
	h.logger.InfoContext(ctx, "rsvp stored", "guests", rsvp.Guests, "timestamp", rsvp.FormattedTimestamp())
	h.renderForm(c, http.StatusOK, gin.H{"success": msgSubmitted, "values": submission{Guests: model.DefaultGuests}})
}

// RenderAdminPrompt asks for the admin password. attempted marks a failed
// login.
func (h *RSVPHandler) RenderAdminPrompt(c *gin.Context, attempted bool) {
	status := http.StatusOK
	data := gin.H{"event": h.event, "authorized": false}
	if attempted {
		status = http.StatusUnauthorized
		data["error"] = msgIncorrectPassword
	}
	h.render(c, h.tmplAdmin, status, data)
}

// RenderAdminOverview lists all responses. The caller has checked the
// password already.
func (h *RSVPHandler) RenderAdminOverview(c *gin.Context) {
	var span trace.Span
	ctx := c.Request.Context()
	ctx, span = tracer.Start(ctx, "RSVPHandler.RenderAdminOverview")
	defer span.End()

	rsvps, err := h.store.ListRSVPs(ctx)
	if err != nil {
		h.fail(c, span, "could not list rsvps", err)
		return
	}
	span.SetAttributes(attribute.Int("rsvps", len(rsvps)))

	h.render(c, h.tmplAdmin, http.StatusOK, gin.H{
		"event":      h.event,
		"authorized": true,
		"password":   c.PostForm("password"),
		"rsvps":      rsvps,
		"total":      model.TotalGuests(rsvps),
	})
}

// Export sends all responses as a CSV download.
func (h *RSVPHandler) Export(c *gin.Context) {
	var span trace.Span
	ctx := c.Request.Context()
	ctx, span = tracer.Start(ctx, "RSVPHandler.Export")
	defer span.End()

	rsvps, err := h.store.ListRSVPs(ctx)
	if err != nil {
		h.fail(c, span, "could not list rsvps", err)
		return
	}
	data, err := rsvpcsv.Bytes(rsvps)
	if err != nil {
		h.fail(c, span, "could not export rsvps", err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": h.exportFilename}))
	c.Data(http.StatusOK, rsvpcsv.ContentType+"; charset=utf-8", data)
}

// RenderCountdown renders the countdown fragment the form page polls.
func (h *RSVPHandler) RenderCountdown(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := h.tmplCountdown.ExecuteTemplate(c.Writer, "countdown", h.event.CountdownAt(h.now())); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "failed to execute template", "error", err)
	}
}

func (h *RSVPHandler) renderForm(c *gin.Context, status int, data gin.H) {
	now := h.now()
	data["event"] = h.event
	data["countdown"] = h.event.CountdownAt(now)
	data["closed"] = h.event.DeadlinePassed(now)
	if _, ok := data["values"]; !ok {
		data["values"] = submission{Guests: model.DefaultGuests}
	}
	h.render(c, h.tmplForm, status, data)
}

func (h *RSVPHandler) render(c *gin.Context, tmpl *template.Template, status int, data gin.H) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := tmpl.Execute(c.Writer, data); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "failed to execute template", "error", err)
	}
}

func (h *RSVPHandler) fail(c *gin.Context, span trace.Span, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	h.logger.ErrorContext(c.Request.Context(), msg, "error", err)
	_ = c.Error(err)
	h.errorHandler.Handle(c, model.ErrorReasonProcess)
}
