package payload

import "github.com/vasapolrittideah/identity-gateway/shared/validator"

type LoginRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Password    string `json:"password"     validate:"required"`
	InviteToken string `json:"invite_token"`
}

type SignupRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Name        string `json:"name"         validate:"required"`
	Password    string `json:"password"     validate:"required"`
	InviteToken string `json:"invite_token"`
}

type ExternalLoginRequest struct {
	Code        string `json:"code"         validate:"required"`
	RedirectURI string `json:"redirect_uri" validate:"omitempty,url"`
	InviteToken string `json:"invite_token"`
}

type UnlinkRequest struct {
	ProviderUserID string `json:"provider_user_id" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"         validate:"required"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries the bearer token for subsequent requests.
type TokenResponse struct {
	Token string `json:"token"`
}

type ErrorResponse struct {
	Error  string                 `json:"error"`
	Fields []validator.FieldError `json:"fields,omitempty"`
}
