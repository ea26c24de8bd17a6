package usecase

import (
	"context"
	"sync/atomic"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/repository"
)

// RoleAssigner decides the roles of a newly created user. The first user in an
// empty system becomes a global admin. Two signups racing on an empty store
// may both be granted the role.
type RoleAssigner struct {
	userRepo repository.UserRepository
	// usersExist short-circuits the count once any user has been observed.
	usersExist atomic.Bool
}

// NewRoleAssigner creates a RoleAssigner.
func NewRoleAssigner(userRepo repository.UserRepository) *RoleAssigner {
	return &RoleAssigner{userRepo: userRepo}
}

func (a *RoleAssigner) rolesForNewUser(ctx context.Context) ([]string, error) {
	roles := []string{model.RoleClient, model.RoleUser}
	if a.usersExist.Load() {
		return roles, nil
	}

	count, err := a.userRepo.CountUsers(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "count users", Err: err}
	}

	if count > 0 {
		a.usersExist.Store(true)
		return roles, nil
	}

	return append(roles, model.RoleGlobalAdmin), nil
}
