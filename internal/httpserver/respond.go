package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cookieshake/santokit-sub000/internal/bridgeerr"
)

// Respond writes a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// errorEnvelope is the wire shape from spec.md §6:
// {"error": {"code", "message", "requestId"}}.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// RespondError writes the standard error envelope for an arbitrary
// (status, code, message) triple.
func RespondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	Respond(w, status, errorEnvelope{
		Error: errorBody{
			Code:      code,
			Message:   message,
			RequestID: RequestIDFromContext(r.Context()),
		},
	})
}

// RespondBridgeError writes the error envelope for a *bridgeerr.Error,
// deriving status and code from its taxon.
func RespondBridgeError(w http.ResponseWriter, r *http.Request, err *bridgeerr.Error) {
	RespondError(w, r, err.Status(), err.Code, err.Message)
}
