package usecase

import (
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
	"github.com/vasapolrittideah/identity-gateway/shared/security"
)

// setPassword hashes password into user, creating the user's salt on first use.
func setPassword(hasher *security.PasswordHasher, user *model.User, password string) error {
	if user.Salt == "" {
		salt, err := security.GenerateSalt()
		if err != nil {
			return err
		}
		user.Salt = salt
	}

	hash, err := hasher.Hash(password, user.Salt)
	if err != nil {
		return err
	}

	user.Password = hash
	return nil
}

// checkPassword reports whether password matches the user's local password.
func checkPassword(hasher *security.PasswordHasher, user *model.User, password string) bool {
	if !user.HasLocalPassword() {
		return false
	}

	ok, err := hasher.Verify(password, user.Salt, user.Password)
	return err == nil && ok
}

func validatePassword(password string) error {
	if err := security.ValidatePassword(password); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	return nil
}
