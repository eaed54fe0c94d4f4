package apperr

import (
	"log/slog"
	"net/http"

	"github.com/isekhard17/academia-sekhard/common/httputil"
	"github.com/isekhard17/academia-sekhard/internal/observability"
)

type validationBody struct {
	Error  []string     `json:"error"`
	Fields []FieldError `json:"fields"`
}

// Respond writes err as the standard error body. Validation failures carry
// a list of messages plus per-field detail; every other kind carries a
// single message. Upstream failures are logged and reported, and their
// cause never reaches the client.
func Respond(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	e := As(err)
	if e == nil {
		e = &Error{Kind: KindUpstream, Err: err}
	}
	status := e.Kind.Status()

	if e.Kind == KindUpstream {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "error", err)
		observability.CaptureRequestErr(r.Context(), r, err)
		httputil.RespondWithError(w, status, ErrUpstream.Message)
		return
	}

	logger.InfoContext(r.Context(), "request rejected",
		"path", r.URL.Path,
		"method", r.Method,
		"kind", e.Kind.String(),
		"status", status,
	)

	if e.Kind == KindValidation && len(e.Fields) > 0 {
		msgs := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			msgs = append(msgs, f.Field+": "+f.Message)
		}
		httputil.RespondWithJSON(w, status, validationBody{Error: msgs, Fields: e.Fields})
		return
	}

	msg := e.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	httputil.RespondWithError(w, status, msg)
}
