package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/payload"
)

func (h *AuthHTTPHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := h.passwordResetUsecase.ForgotPassword(r.Context(), chi.URLParam(r, "email")); err != nil {
		h.writeError(w, r, "forgot_password", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *AuthHTTPHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ResetPasswordRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, "reset_password", err)
		return
	}

	if err := h.passwordResetUsecase.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.writeError(w, r, "reset_password", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *AuthHTTPHandler) cancelResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := h.passwordResetUsecase.CancelResetPassword(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.writeError(w, r, "cancel_reset_password", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
