package router

import (
	"context"
	"errors"
	"regexp"

	"github.com/nidhogg/campus-assistant/internal/provider"
)

// CategoryError is reported instead of a classifier category when a
// message could not be answered.
const CategoryError = "error"

var (
	// ErrShuttingDown is returned for requests arriving after Shutdown.
	ErrShuttingDown = errors.New("router shutting down")
	// ErrUnknownTenant is returned when the named tenant is not configured.
	ErrUnknownTenant = errors.New("unknown tenant")
	// ErrConversationNotFound is returned when a conversation does not exist
	// or belongs to another user.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrEmptyMessage is returned for blank messages.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrInvalidConversationID is returned for ids that are not UUIDs.
	ErrInvalidConversationID = errors.New("invalid conversation id")
)

const (
	rateLimitText = "El servicio de asistencia está recibiendo demasiadas solicitudes en este momento. Por favor espera unos minutos e inténtalo de nuevo."
	retryText     = "El asistente se está reiniciando. Por favor envía tu mensaje nuevamente en unos segundos."
	apologyText   = "Lo siento, ocurrió un problema al procesar tu mensaje. Por favor inténtalo de nuevo."
)

var shutdownRe = regexp.MustCompile(`(?i)shut ?down|reload`)

func isShutdown(err error) bool {
	return errors.Is(err, ErrShuttingDown) ||
		errors.Is(err, context.Canceled) ||
		shutdownRe.MatchString(err.Error())
}

// failureText picks the user-facing text for err and reports whether the
// error was expected (and so not worth an error log).
func failureText(err error) (string, bool) {
	switch {
	case provider.IsRateLimited(err):
		return rateLimitText, true
	case isShutdown(err):
		return retryText, true
	default:
		return apologyText, false
	}
}
