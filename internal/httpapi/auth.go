package httpapi

import (
	"encoding/json"
	"net/http"
)

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// handleToken exchanges an email and password for a bearer token. The body
// may be JSON or a form.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)

	var req tokenRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	} else {
		// OAuth2 password grants name the email "username".
		req.Email = r.FormValue("username")
		if req.Email == "" {
			req.Email = r.FormValue("email")
		}
		req.Password = r.FormValue("password")
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	u, err := s.authn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Info("token request rejected", "email", req.Email)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "invalid email or password"})
		return
	}

	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	})
}
