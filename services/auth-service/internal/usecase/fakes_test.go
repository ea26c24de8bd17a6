package usecase

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/config"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/identity-gateway/shared/provider"
	"github.com/vasapolrittideah/identity-gateway/shared/ratelimit"
	"github.com/vasapolrittideah/identity-gateway/shared/security"
)

var errStoreDown = errors.New("store down")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	c.OrganizationIDs = slices.Clone(u.OrganizationIDs)
	c.OAuthAccounts = slices.Clone(u.OAuthAccounts)
	if u.PasswordResetTokenExpiration != nil {
		exp := *u.PasswordResetTokenExpiration
		c.PasswordResetTokenExpiration = &exp
	}
	return &c
}

// memoryUserRepository mimics the unique indexes of the mongo repository.
type memoryUserRepository struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*model.User
	err   error
	// staleEmailReads makes the next n GetUserByEmail calls miss.
	staleEmailReads int
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: map[bson.ObjectID]*model.User{}}
}

func (r *memoryUserRepository) find(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepository) GetUser(_ context.Context, id string) (*model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.find(func(u *model.User) bool { return u.ID == oid })
}

func (r *memoryUserRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	if r.staleEmailReads > 0 {
		r.staleEmailReads--
		r.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	r.mu.Unlock()

	return r.find(func(u *model.User) bool { return u.EmailAddress != "" && u.EmailAddress == email })
}

func (r *memoryUserRepository) GetUserByPasswordResetToken(_ context.Context, token string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.PasswordResetToken != "" && u.PasswordResetToken == token })
}

func (r *memoryUserRepository) GetUserByOAuthIdentity(
	_ context.Context,
	providerName, providerUserID string,
) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.FindOAuthAccount(providerName, providerUserID) >= 0 })
}

func (r *memoryUserRepository) conflicts(user *model.User) bool {
	for _, other := range r.users {
		if other.ID == user.ID {
			continue
		}
		if user.EmailAddress != "" && other.EmailAddress == user.EmailAddress {
			return true
		}
		for _, a := range user.OAuthAccounts {
			if other.FindOAuthAccount(a.Provider, a.ProviderUserID) >= 0 {
				return true
			}
		}
	}
	return false
}

func (r *memoryUserRepository) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	user.ID = bson.NewObjectID()
	if r.conflicts(user) {
		return nil, repository.ErrDuplicateKey
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(user)
	return user, nil
}

func (r *memoryUserRepository) SaveUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	if _, ok := r.users[user.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	if r.conflicts(user) {
		return nil, repository.ErrDuplicateKey
	}

	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = cloneUser(user)
	return user, nil
}

func (r *memoryUserRepository) CountUsers(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	return int64(len(r.users)), nil
}

// put stores user as is, bypassing the create path.
func (r *memoryUserRepository) put(user *model.User) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user)
}

func (r *memoryUserRepository) get(t *testing.T, id bson.ObjectID) *model.User {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	require.True(t, ok, "user %s not stored", id.Hex())
	return cloneUser(u)
}

type memoryOrganizationRepository struct {
	mu   sync.Mutex
	orgs map[bson.ObjectID]*model.Organization
}

func newMemoryOrganizationRepository() *memoryOrganizationRepository {
	return &memoryOrganizationRepository{orgs: map[bson.ObjectID]*model.Organization{}}
}

func (r *memoryOrganizationRepository) GetOrganizationByInviteToken(
	_ context.Context,
	token string,
) (*model.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, org := range r.orgs {
		if _, ok := org.FindInvite(token); ok {
			c := *org
			c.Invites = slices.Clone(org.Invites)
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryOrganizationRepository) RemoveInvite(_ context.Context, organizationID bson.ObjectID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.orgs[organizationID]
	if !ok {
		return repository.ErrNotFound
	}
	org.Invites = slices.DeleteFunc(org.Invites, func(inv model.Invite) bool { return inv.Token == token })
	return nil
}

func (r *memoryOrganizationRepository) addInvite(name, token, email string) *model.Organization {
	r.mu.Lock()
	defer r.mu.Unlock()
	org := &model.Organization{
		ID:      bson.NewObjectID(),
		Name:    name,
		Invites: []model.Invite{{Token: token, EmailAddress: email}},
	}
	r.orgs[org.ID] = org
	return org
}

func (r *memoryOrganizationRepository) invites(id bson.ObjectID) []model.Invite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.orgs[id].Invites)
}

type memoryAccessTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]model.AccessToken
}

func newMemoryAccessTokenRepository() *memoryAccessTokenRepository {
	return &memoryAccessTokenRepository{tokens: map[string]model.AccessToken{}}
}

func (r *memoryAccessTokenRepository) CreateAccessToken(
	_ context.Context,
	token *model.AccessToken,
) (*model.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.ID]; ok {
		return nil, repository.ErrDuplicateKey
	}
	r.tokens[token.ID] = *token
	return token, nil
}

func (r *memoryAccessTokenRepository) GetAccessToken(_ context.Context, id string) (*model.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *memoryAccessTokenRepository) GetAccessTokensByUserID(
	_ context.Context,
	userID bson.ObjectID,
	tokenType model.TokenType,
) ([]model.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AccessToken
	for _, t := range r.tokens {
		if t.UserID == userID && t.Type == tokenType {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryAccessTokenRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

type fakeNotifier struct {
	mu       sync.Mutex
	verified []string
	resets   []string
	err      error
}

func (n *fakeNotifier) SendVerifyEmail(_ context.Context, user *model.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verified = append(n.verified, user.EmailAddress)
	return n.err
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, user *model.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, user.PasswordResetToken)
	return n.err
}

type fakeProviderClient struct {
	name        string
	profile     *provider.Profile
	err         error
	hadDeadline bool
}

func (c *fakeProviderClient) Name() string { return c.name }

func (c *fakeProviderClient) ExchangeCode(ctx context.Context, code, _ string) (*provider.Profile, error) {
	_, c.hadDeadline = ctx.Deadline()
	if c.err != nil {
		return nil, c.err
	}
	if c.profile == nil {
		return nil, nil
	}
	p := *c.profile
	return &p, nil
}

func requireValidationError(t *testing.T, err error) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
}

// testEnv wires every usecase against in-memory stores and a miniredis limiter.
type testEnv struct {
	cfg        *config.AuthServiceConfig
	clock      *testClock
	redis      *miniredis.Miniredis
	limiter    *ratelimit.Limiter
	users      *memoryUserRepository
	orgs       *memoryOrganizationRepository
	tokenRepo  *memoryAccessTokenRepository
	notifier   *fakeNotifier
	github     *fakeProviderClient
	hasher     *security.PasswordHasher
	tokens     TokenUsecase
	invites    InviteUsecase
	identities IdentityUsecase
	auth       AuthUsecase
	resets     PasswordResetUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &testClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	logger := zerolog.Nop()

	cfg := &config.AuthServiceConfig{
		AccountCreationEnabled:      true,
		PasswordResetTokenExpiresIn: time.Hour,
		ProviderTimeout:             10 * time.Second,
		RateLimit:                   config.DefaultRateLimitConfig(),
	}

	env := &testEnv{
		cfg:       cfg,
		clock:     clock,
		redis:     mr,
		users:     newMemoryUserRepository(),
		orgs:      newMemoryOrganizationRepository(),
		tokenRepo: newMemoryAccessTokenRepository(),
		notifier:  &fakeNotifier{},
		github:    &fakeProviderClient{name: provider.GitHub},
		hasher:    security.NewPasswordHasher(security.HasherConfig{MemoryCost: 1024, TimeCost: 1, Parallelism: 1}),
	}

	env.limiter = ratelimit.New(client, "test", ratelimit.WithClock(clock.Now))
	roles := NewRoleAssigner(env.users)

	tokens := NewTokenUsecase(env.tokenRepo, env.users, &logger)
	tokens.(*tokenUsecase).now = clock.Now
	env.tokens = tokens

	env.invites = NewInviteUsecase(env.orgs, env.users, &logger)
	env.identities = NewIdentityUsecase(env.users, roles, cfg, &logger)
	env.auth = NewAuthUsecase(
		env.users,
		env.limiter,
		env.tokens,
		env.invites,
		env.identities,
		provider.NewRegistry(env.github),
		env.notifier,
		env.hasher,
		roles,
		cfg,
		&logger,
	)

	resets := NewPasswordResetUsecase(env.users, env.notifier, env.hasher, cfg, &logger)
	resets.(*passwordResetUsecase).now = clock.Now
	env.resets = resets

	return env
}

// localUser stores an active user with a local password.
func (e *testEnv) localUser(t *testing.T, email, password string) *model.User {
	t.Helper()
	u := &model.User{
		EmailAddress:    email,
		FullName:        email,
		IsActive:        true,
		Roles:           []string{model.RoleClient, model.RoleUser},
		OrganizationIDs: []string{},
	}
	require.NoError(t, setPassword(e.hasher, u, password))
	return e.users.put(u)
}

// externalUser stores an active, verified user signed up through an identity provider.
func (e *testEnv) externalUser(email, providerName, providerUserID string) *model.User {
	return e.users.put(&model.User{
		EmailAddress:           email,
		FullName:               email,
		IsActive:               true,
		IsEmailAddressVerified: true,
		Roles:                  []string{model.RoleClient, model.RoleUser},
		OAuthAccounts:          []model.OAuthAccount{{Provider: providerName, ProviderUserID: providerUserID}},
	})
}
