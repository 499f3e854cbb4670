package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"drive-go/internal/drive"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// statusFor maps an error kind onto an HTTP status code.
func statusFor(kind drive.Kind) int {
	switch kind {
	case drive.KindNotFound:
		return http.StatusNotFound
	case drive.KindUnknownUser:
		return http.StatusUnauthorized
	case drive.KindNameConflict, drive.KindNotEmpty, drive.KindCycleDetected:
		return http.StatusConflict
	case drive.KindInvalidParent, drive.KindInvalidQuery, drive.KindInvalidName, drive.KindInvalidArgument:
		return http.StatusBadRequest
	case drive.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	case drive.KindStorageError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError renders err. Only drive errors expose their message; anything
// else is logged and reported as an internal error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *drive.Error
	if !errors.As(err, &de) {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: string(drive.KindInternal), Message: "internal server error"})
		return
	}

	status := statusFor(de.Kind)
	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "kind", string(de.Kind), "error", err)
	}
	if de.Retryable() {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorResponse{Error: string(de.Kind), Message: de.Message, Retryable: de.Retryable()})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(drive.KindInvalidArgument), Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
