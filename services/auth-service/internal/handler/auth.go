package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/usecase"
)

func (h *AuthHTTPHandler) login(w http.ResponseWriter, r *http.Request) {
	var req payload.LoginRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	token, err := h.authUsecase.Login(r.Context(), usecase.LoginParams{
		Email:       req.Email,
		Password:    req.Password,
		InviteToken: req.InviteToken,
		ClientIP:    h.clientIPs.ClientIP(r),
	})
	if err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, payload.TokenResponse{Token: token})
}

func (h *AuthHTTPHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req payload.SignupRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, "signup", err)
		return
	}

	token, err := h.authUsecase.Signup(r.Context(), usecase.SignupParams{
		Email:       req.Email,
		Name:        req.Name,
		Password:    req.Password,
		InviteToken: req.InviteToken,
		ClientIP:    h.clientIPs.ClientIP(r),
	})
	if err != nil {
		h.writeError(w, r, "signup", err)
		return
	}

	writeJSON(w, http.StatusOK, payload.TokenResponse{Token: token})
}

func (h *AuthHTTPHandler) externalLogin(w http.ResponseWriter, r *http.Request) {
	var req payload.ExternalLoginRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, "external_login", err)
		return
	}

	session, _ := UserFromContext(r.Context())
	token, err := h.authUsecase.ExternalLogin(r.Context(), usecase.ExternalLoginParams{
		Provider:    chi.URLParam(r, "provider"),
		Code:        req.Code,
		RedirectURI: req.RedirectURI,
		InviteToken: req.InviteToken,
		ClientIP:    h.clientIPs.ClientIP(r),
		Session:     session,
	})
	if err != nil {
		h.writeError(w, r, "external_login", err)
		return
	}

	writeJSON(w, http.StatusOK, payload.TokenResponse{Token: token})
}

func (h *AuthHTTPHandler) removeExternalLogin(w http.ResponseWriter, r *http.Request) {
	var req payload.UnlinkRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, "remove_external_login", err)
		return
	}

	user, _ := UserFromContext(r.Context())
	err := h.authUsecase.RemoveExternalLogin(r.Context(), usecase.RemoveExternalLoginParams{
		User:           user,
		Provider:       chi.URLParam(r, "provider"),
		ProviderUserID: req.ProviderUserID,
	})
	if err != nil {
		h.writeError(w, r, "remove_external_login", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *AuthHTTPHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ChangePasswordRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, "change_password", err)
		return
	}

	user, _ := UserFromContext(r.Context())
	err := h.authUsecase.ChangePassword(r.Context(), usecase.ChangePasswordParams{
		User:            user,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.Password,
	})
	if err != nil {
		h.writeError(w, r, "change_password", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// checkEmailAddress answers 204 when the address is free and 201 when it is taken.
func (h *AuthHTTPHandler) checkEmailAddress(w http.ResponseWriter, r *http.Request) {
	session, _ := UserFromContext(r.Context())
	available, err := h.authUsecase.IsEmailAvailable(r.Context(), usecase.EmailAvailabilityParams{
		Email:    chi.URLParam(r, "email"),
		ClientIP: h.clientIPs.ClientIP(r),
		Session:  session,
	})
	if err != nil {
		h.writeError(w, r, "check_email", err)
		return
	}

	if available {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
