package handlers

import (
	"errors"
	"net/http"

	"github.com/avvvet/manavault/internal/apisvc/service"
	"github.com/avvvet/manavault/internal/apisvc/store"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !h.decode(w, r, &in) {
		return
	}

	user, err := h.auth.Signup(r.Context(), in.Email, in.Password)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, user)
	case errors.Is(err, service.ErrInvalidInput):
		h.errorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrEmailTaken):
		h.errorResponse(w, http.StatusConflict, err.Error())
	default:
		log.Errorf("Error [Signup] %v", err)
		h.errorResponse(w, http.StatusInternalServerError, "could not create user")
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !h.decode(w, r, &in) {
		return
	}

	token, err := h.auth.Login(r.Context(), in.Email, in.Password)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, statusResponse{Status: "success", Token: token})
	case errors.Is(err, service.ErrInvalidCredentials):
		h.errorResponse(w, http.StatusUnauthorized, err.Error())
	default:
		log.Errorf("Error [Login] %v", err)
		h.errorResponse(w, http.StatusInternalServerError, "could not log in")
	}
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !h.decode(w, r, &in) {
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), in.Email); err != nil {
		log.Errorf("Error [ForgotPassword] %v", err)
		h.errorResponse(w, http.StatusInternalServerError, "could not start password reset")
		return
	}
	h.writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Password reset has been sent to your email"})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &in) {
		return
	}

	err := h.auth.ResetPassword(r.Context(), in.Token, in.Password)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Password has been reset"})
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidResetToken):
		h.errorResponse(w, http.StatusBadRequest, err.Error())
	default:
		log.Errorf("Error [ResetPassword] %v", err)
		h.errorResponse(w, http.StatusInternalServerError, "could not reset password")
	}
}

// Authenticator runs after jwtauth.Verifier: a missing token is 403, a bad
// or expired one 401.
func (h *Handler) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if errors.Is(err, jwtauth.ErrNoTokenFound) {
			h.errorResponse(w, http.StatusForbidden, "No token provided")
			return
		}
		if err != nil || token == nil {
			h.errorResponse(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) LoginToken(w http.ResponseWriter, r *http.Request) {
	_, claims, _ := jwtauth.FromContext(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "You have access to this protected route!",
		"user":    claims,
	})
}
