// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package templates

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quixsi/rsvp/internal/model"
)

var errorMessages = map[model.ErrorReason]struct {
	status  int
	title   string
	message string
}{
	model.ErrorReasonDeadline: {
		status:  http.StatusMethodNotAllowed,
		title:   "RSVPs are closed",
		message: "The deadline for responses has passed.",
	},
	model.ErrorReasonProcess: {
		status:  http.StatusInternalServerError,
		title:   "Something went wrong",
		message: "Your request could not be processed. Please try again later.",
	},
	model.ErrorReasonInvalidPage: {
		status:  http.StatusNotFound,
		title:   "Invalid page",
		message: "Invalid page. Please go back to the home page.",
	},
}

func NewErrorHandler(event *model.Event) *ErrorHandler {
	return &ErrorHandler{
		tmpl:   template.Must(template.ParseFS(templates, "main.html", "main.style.html", "error.html")),
		event:  event,
		logger: slog.Default().WithGroup("http"),
	}
}

type ErrorHandler struct {
	tmpl   *template.Template
	event  *model.Event
	logger *slog.Logger
}

// Handle renders the error page for reason and aborts the chain.
func (e *ErrorHandler) Handle(c *gin.Context, reason model.ErrorReason) {
	msg, ok := errorMessages[reason]
	if !ok {
		msg = errorMessages[model.ErrorReasonProcess]
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(msg.status)
	err := e.tmpl.Execute(c.Writer, gin.H{
		"event":   e.event,
		"reason":  reason.String(),
		"title":   msg.title,
		"message": msg.message,
	})
	if err != nil {
		e.logger.ErrorContext(c.Request.Context(), "failed to execute template", "error", err)
	}
	c.Abort()
}
