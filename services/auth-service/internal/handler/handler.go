package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/identity-gateway/shared/metrics"
	"github.com/vasapolrittideah/identity-gateway/shared/middleware"
	"github.com/vasapolrittideah/identity-gateway/shared/utilities"
	"github.com/vasapolrittideah/identity-gateway/shared/validator"
)

const maxBodyBytes = 1 << 20

// AuthHTTPHandler serves the authentication endpoints.
type AuthHTTPHandler struct {
	authUsecase          usecase.AuthUsecase
	passwordResetUsecase usecase.PasswordResetUsecase
	tokenUsecase         usecase.TokenUsecase
	validator            *validator.Validator
	metrics              *metrics.HTTPMetrics
	clientIPs            *utilities.ClientIPResolver
	logger               *zerolog.Logger
}

func NewAuthHTTPHandler(
	authUsecase usecase.AuthUsecase,
	passwordResetUsecase usecase.PasswordResetUsecase,
	tokenUsecase usecase.TokenUsecase,
	requestValidator *validator.Validator,
	httpMetrics *metrics.HTTPMetrics,
	clientIPs *utilities.ClientIPResolver,
	logger *zerolog.Logger,
) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		authUsecase:          authUsecase,
		passwordResetUsecase: passwordResetUsecase,
		tokenUsecase:         tokenUsecase,
		validator:            requestValidator,
		metrics:              httpMetrics,
		clientIPs:            clientIPs,
		logger:               logger,
	}
}

// Routes builds the router for the auth service.
func (h *AuthHTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(h.metrics.Middleware)

	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/signup", h.signup)
		r.Get("/forgot-password/{email}", h.forgotPassword)
		r.Post("/reset-password", h.resetPassword)
		r.Post("/cancel-reset-password/{token}", h.cancelResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate(false))
			r.Post("/{provider}", h.externalLogin)
			r.Get("/check-email-address/{email}", h.checkEmailAddress)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate(true))
			r.Post("/unlink/{provider}", h.removeExternalLogin)
			r.Post("/change-password", h.changePassword)
		})
	})

	return r
}

func (h *AuthHTTPHandler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads and validates a JSON request body into dst.
func (h *AuthHTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return &usecase.ValidationError{Message: "Request body must be valid JSON."}
	}

	return h.validator.Struct(dst)
}

// writeError maps usecase errors to responses. Only messages that are safe
// to show are returned verbatim.
func (h *AuthHTTPHandler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := zerolog.Ctx(r.Context())
	if log.GetLevel() == zerolog.Disabled {
		log = h.logger
	}

	var (
		fieldErr      *validator.Error
		validationErr *usecase.ValidationError
		externalErr   *usecase.ExternalIdentityError
	)

	switch {
	case errors.As(err, &fieldErr):
		writeJSON(w, http.StatusBadRequest, payload.ErrorResponse{
			Error:  "The request is invalid.",
			Fields: fieldErr.Fields,
		})
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, payload.ErrorResponse{Error: validationErr.Message})
	case errors.Is(err, usecase.ErrAccountCreationDisabled),
		errors.Is(err, usecase.ErrIdentityUnlinkable):
		writeJSON(w, http.StatusBadRequest, payload.ErrorResponse{Error: err.Error()})
	case errors.As(err, &externalErr):
		log.Warn().Err(err).Str("op", op).Msg("external identity rejected")
		writeJSON(w, http.StatusBadRequest, payload.ErrorResponse{
			Error: "Unable to get user info from the identity provider.",
		})
	case errors.Is(err, usecase.ErrAuthenticationFailed):
		writeJSON(w, http.StatusUnauthorized, payload.ErrorResponse{Error: "Authentication failed."})
	case errors.Is(err, usecase.ErrProviderNotFound):
		writeJSON(w, http.StatusNotFound, payload.ErrorResponse{Error: "Identity provider not found."})
	default:
		log.Error().Err(err).Str("op", op).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, payload.ErrorResponse{Error: "something went wrong"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
