package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"drive-go/internal/drive"
)

// UserHeader carries the authenticated user id set by the upstream auth layer.
const UserHeader = "X-User-ID"

type ctxKey int

const ownerKey ctxKey = iota

// requireUser resolves the request's user and stores it in the context.
// With a token verifier configured only bearer tokens are accepted;
// otherwise the user id set by the upstream auth layer is taken as given.
// Either way the id must belong to a registered user.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var owner string
		if s.tokens != nil {
			id, err := s.tokens.Verify(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="drive"`)
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: err.Error()})
				return
			}
			owner = id
		} else {
			owner = strings.TrimSpace(r.Header.Get(UserHeader))
			if owner == "" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "missing " + UserHeader + " header"})
				return
			}
		}
		if err := s.svc.CheckUser(r.Context(), owner); err != nil {
			if drive.KindOf(err) == drive.KindUnknownUser {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "unknown user"})
				return
			}
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}

// ownerFrom returns the user id stored by requireUser.
func ownerFrom(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey).(string)
	return owner
}

// requestLogger logs one line per request at debug level, and at warn level
// for server errors.
func requestLogger(logger drive.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			}
			if ww.Status() >= 500 {
				logger.Warn("http request", args...)
				return
			}
			logger.Debug("http request", args...)
		})
	}
}
