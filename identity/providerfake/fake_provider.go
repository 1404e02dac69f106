package providerfake

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/webcraft/account-gateway/identity"
	apperrors "github.com/webcraft/account-gateway/internal/errors"
)

var _ identity.Provider = (*FakeProvider)(nil)

// FakeProvider is an in-memory stand-in for the hosted identity provider.
// Error fields, when set, are returned by the corresponding call so tests can
// exercise provider-failure paths.
type FakeProvider struct {
	lock     sync.RWMutex
	users    map[string]*identity.UserRecord
	emailIds map[string]string // email to uid
	refresh  map[string]string // refresh token to uid

	RevokeCalls  int
	RefreshCalls int

	FailRefresh error
	FailLookup  error
	FailUpdate  error
	FailOobLink error
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		users:    make(map[string]*identity.UserRecord),
		emailIds: make(map[string]string),
		refresh:  make(map[string]string),
	}
}

// Seed installs a user record directly, bypassing validation.
func (p *FakeProvider) Seed(user *identity.UserRecord) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if user.UID == "" {
		user.UID = uuid.New().String()
	}
	p.users[user.UID] = user
	p.emailIds[user.Email] = user.UID
}

func (p *FakeProvider) CreateUser(_ context.Context, params identity.CreateUserParams) (*identity.UserRecord, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if _, ok := p.emailIds[params.Email]; ok {
		return nil, apperrors.ErrEmailExists
	}
	if len(params.Password) < 6 {
		return nil, apperrors.ErrWeakPassword
	}

	user := &identity.UserRecord{
		UID:           uuid.New().String(),
		Email:         params.Email,
		DisplayName:   params.DisplayName,
		EmailVerified: params.EmailVerified,
		Method:        identity.MethodPassword,
		CreatedAt:     time.Now(),
	}
	p.users[user.UID] = user
	p.emailIds[user.Email] = user.UID
	return copyRecord(user), nil
}

func (p *FakeProvider) GetUser(_ context.Context, uid string) (*identity.UserRecord, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	if p.FailLookup != nil {
		return nil, p.FailLookup
	}
	user, ok := p.users[uid]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return copyRecord(user), nil
}

func (p *FakeProvider) GetUserByEmail(_ context.Context, email string) (*identity.UserRecord, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	uid, ok := p.emailIds[email]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return copyRecord(p.users[uid]), nil
}

func (p *FakeProvider) UpdateUser(_ context.Context, uid string, params identity.UpdateUserParams) (*identity.UserRecord, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.FailUpdate != nil {
		return nil, p.FailUpdate
	}
	user, ok := p.users[uid]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	if params.Disabled != nil {
		user.Disabled = *params.Disabled
	}
	if params.EmailVerified != nil {
		user.EmailVerified = *params.EmailVerified
	}
	if params.DisplayName != nil {
		user.DisplayName = *params.DisplayName
	}
	return copyRecord(user), nil
}

func (p *FakeProvider) DeleteUser(_ context.Context, uid string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	user, ok := p.users[uid]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	delete(p.emailIds, user.Email)
	delete(p.users, uid)
	return nil
}

func (p *FakeProvider) ListUsers(_ context.Context) ([]*identity.UserRecord, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	list := make([]*identity.UserRecord, 0, len(p.users))
	for _, u := range p.users {
		list = append(list, copyRecord(u))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UID < list[j].UID })
	return list, nil
}

func (p *FakeProvider) SignInWithPassword(_ context.Context, email, password string) (*identity.Credential, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	uid, ok := p.emailIds[email]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	user := p.users[uid]
	if user.Disabled {
		return nil, apperrors.ErrUserDisabled
	}
	if password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}
	user.LastLoginAt = time.Now()
	return p.issueCredential(uid), nil
}

func (p *FakeProvider) SignInWithIdp(_ context.Context, providerID, accessToken string) (*identity.Credential, *identity.UserRecord, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if accessToken == "" {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	// Federated sign-in creates the account on first use.
	email := fmt.Sprintf("%s@%s", accessToken, providerID)
	uid, ok := p.emailIds[email]
	if !ok {
		user := &identity.UserRecord{
			UID:           uuid.New().String(),
			Email:         email,
			DisplayName:   accessToken,
			EmailVerified: true,
			Method:        identity.SignInMethod(providerID),
			CreatedAt:     time.Now(),
		}
		p.users[user.UID] = user
		p.emailIds[email] = user.UID
		uid = user.UID
	}
	p.users[uid].LastLoginAt = time.Now()
	return p.issueCredential(uid), copyRecord(p.users[uid]), nil
}

func (p *FakeProvider) RefreshIDToken(_ context.Context, refreshToken string) (*identity.Credential, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.RefreshCalls++
	if p.FailRefresh != nil {
		return nil, p.FailRefresh
	}
	uid, ok := p.refresh[refreshToken]
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}
	delete(p.refresh, refreshToken)
	return p.issueCredential(uid), nil
}

func (p *FakeProvider) RevokeTokens(_ context.Context, uid string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.RevokeCalls++
	if _, ok := p.users[uid]; !ok {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (p *FakeProvider) GenerateEmailVerificationLink(_ context.Context, email string) (string, error) {
	return p.oobLink("verify-email", email)
}

func (p *FakeProvider) GeneratePasswordResetLink(_ context.Context, email string) (string, error) {
	return p.oobLink("reset-password", email)
}

func (p *FakeProvider) oobLink(action, email string) (string, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	if p.FailOobLink != nil {
		return "", p.FailOobLink
	}
	if _, ok := p.emailIds[email]; !ok {
		return "", apperrors.ErrUserNotFound
	}
	return fmt.Sprintf("https://provider.example/%s?oobCode=%s", action, uuid.New().String()), nil
}

// issueCredential mints a signed JWT so ledger code that inspects token
// claims sees realistic expiries. Callers must hold the lock.
func (p *FakeProvider) issueCredential(uid string) *identity.Credential {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		// jti keeps tokens unique even when two credentials are minted
		// within the same second.
		ID: uuid.New().String(),
	}
	idToken, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("fake-provider-key"))

	refreshToken := uuid.New().String()
	p.refresh[refreshToken] = uid

	return &identity.Credential{
		UID:          uid,
		IDToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresIn:    time.Hour,
	}
}

func copyRecord(user *identity.UserRecord) *identity.UserRecord {
	cp := *user
	return &cp
}
