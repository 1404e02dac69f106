// Package session owns the server-held session state: the reconciliation of
// auth-state events against the identity provider and profile store, the
// token lifecycle monitor, and the derived access guards.
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/webcraft/account-gateway/identity"
	apperrors "github.com/webcraft/account-gateway/internal/errors"
	"github.com/webcraft/account-gateway/internal/metrics"
	"github.com/webcraft/account-gateway/internal/utils"
	"github.com/webcraft/account-gateway/ledger"
	"github.com/webcraft/account-gateway/profiles"
)

// AuthEvent is one auth-state change from upstream. A nil User means signed
// out. Credential carries the identity token issued with the event, if any;
// OAuthToken carries a secondary-provider access token to record alongside.
type AuthEvent struct {
	User       *identity.UserRecord
	Credential *identity.Credential
	OAuthToken string
}

// State is the reconciled session state.
type State struct {
	User         *identity.UserRecord
	Profile      *profiles.Profile
	Loading      bool
	TokenExpired bool
}

// Controller is the single subscription point for auth-state events. Each
// event is reconciled into State: profile fetch/creation, the
// email-verification invariant, ledger bookkeeping and arming the monitor.
type Controller struct {
	provider identity.Provider
	profiles profiles.Repo
	store    ledger.Store
	monitor  *Monitor
	log      zerolog.Logger
	nowTime  func() time.Time
	metrics  metrics.Collector

	// latch enforces the at-most-one-in-flight reconciliation policy: an
	// event arriving while a prior one is still reconciling is dropped, not
	// queued.
	latch   atomic.Bool
	dropped atomic.Uint64

	mu    sync.RWMutex
	state State
	cred  *identity.Credential

	closed    atomic.Bool
	closeOnce sync.Once

	monitorOptions []MonitorOption
}

// ControllerOption defines a function type to modify the Controller instance.
type ControllerOption func(*Controller)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.nowTime = nowFunc
		c.monitorOptions = append(c.monitorOptions, WithMonitorNowTime(nowFunc))
	}
}

// WithLogger sets the logger for the controller and its monitor.
func WithLogger(log zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.log = log
		c.monitorOptions = append(c.monitorOptions, WithMonitorLogger(log))
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector metrics.Collector) ControllerOption {
	return func(c *Controller) {
		c.metrics = collector
		c.monitorOptions = append(c.monitorOptions, WithMonitorMetrics(collector))
	}
}

// WithMonitorOptions appends options passed through to the monitor.
func WithMonitorOptions(options ...MonitorOption) ControllerOption {
	return func(c *Controller) {
		c.monitorOptions = append(c.monitorOptions, options...)
	}
}

// NewController initializes a Controller and its token lifecycle monitor.
func NewController(
	provider identity.Provider,
	profileRepo profiles.Repo,
	store ledger.Store,
	options ...ControllerOption,
) (*Controller, error) {
	if provider == nil {
		return nil, errors.New("[NewController] identity provider is required")
	}
	if profileRepo == nil {
		return nil, errors.New("[NewController] profile repo is required")
	}
	if store == nil {
		return nil, errors.New("[NewController] ledger store is required")
	}

	c := &Controller{
		provider: provider,
		profiles: profileRepo,
		store:    store,
		log:      zerolog.Nop(),
		nowTime:  time.Now,
		metrics:  metrics.Nop{},
	}
	for _, opt := range options {
		opt(c)
	}

	c.monitor = newMonitor(
		provider,
		store,
		c.refreshSource,
		c.handleExpired,
		c.handleRefreshed,
		c.monitorOptions...,
	)

	return c, nil
}

// Start begins the monitor's periodic checks. The controller is usable for
// Publish before Start; only the timers depend on it.
func (c *Controller) Start(ctx context.Context) {
	c.monitor.Start(ctx)
}

// Close tears down the event intake and the monitor's timers together. Safe
// to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.monitor.Stop()
	})
}

// Monitor exposes the token lifecycle monitor.
func (c *Controller) Monitor() *Monitor {
	return c.monitor
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// DroppedEvents reports how many events were dropped by the reconciliation
// latch.
func (c *Controller) DroppedEvents() uint64 {
	return c.dropped.Load()
}

// Publish delivers an auth-state event. It returns false when the event was
// not processed: either the controller is closed, or a prior event is still
// reconciling and this one was dropped per the at-most-one-in-flight policy.
func (c *Controller) Publish(ctx context.Context, event AuthEvent) bool {
	if c.closed.Load() {
		return false
	}
	if !c.latch.CompareAndSwap(false, true) {
		c.dropped.Add(1)
		c.log.Warn().Msg("auth event dropped: reconciliation already in flight")
		return false
	}
	defer c.latch.Store(false)

	c.reconcile(ctx, event)
	return true
}

func (c *Controller) reconcile(ctx context.Context, event AuthEvent) {
	if event.User == nil {
		c.log.Debug().Msg("auth state changed: no user")
		c.setSignedOut(false)
		return
	}

	user := event.User
	c.log.Debug().Str("email", user.Email).Msg("auth state changed")
	c.setState(State{User: user, Loading: true})

	// A password account that never verified its email is an invalid
	// session: the provider may still hold a stale unverified session, so
	// sign out explicitly rather than just dropping local state.
	if user.Method == identity.MethodPassword && !user.EmailVerified {
		c.log.Warn().Str("email", user.Email).Msg("unverified email sign-in rejected")
		if err := c.provider.RevokeTokens(ctx, user.UID); err != nil {
			c.log.Error().Err(err).Str("uid", user.UID).Msg("failed to sign out unverified user")
		}
		if err := c.store.SetFlag(ledger.FlagVerificationRequired); err != nil {
			c.log.Error().Err(err).Msg("failed to record verification-required flag")
		}
		if err := c.store.Clear(); err != nil {
			c.log.Error().Err(err).Msg("failed to clear token ledger")
		}
		c.setSignedOut(false)
		return
	}

	profile := c.reconcileProfile(ctx, user)

	now := c.nowTime()
	led := c.recordTokens(event, now)

	record := led.Record(ledger.ProviderIdentity)
	tokenExpired := record != nil && ledger.Expired(record, now)

	c.setState(State{User: user, Profile: profile, TokenExpired: tokenExpired})
	c.monitor.Arm()
}

// reconcileProfile fetches the user's profile document, creating it on first
// sign-in and correcting its verification flag if it diverges from the live
// account.
func (c *Controller) reconcileProfile(ctx context.Context, user *identity.UserRecord) *profiles.Profile {
	profile, err := c.profiles.Get(ctx, user.UID)
	if apperrors.Is(err, apperrors.ErrProfileNotFound) {
		profile = NewProfile(user)
		if err := c.profiles.Set(ctx, profile); err != nil {
			c.log.Error().Err(err).Str("uid", user.UID).Msg("failed to create profile")
			return nil
		}
		return profile
	}
	if err != nil {
		c.log.Error().Err(err).Str("uid", user.UID).Msg("failed to fetch profile")
		return nil
	}

	if profile.EmailVerified != user.EmailVerified {
		profile.EmailVerified = user.EmailVerified
		update := profiles.ProfileUpdate{EmailVerified: utils.Ptr(user.EmailVerified)}
		if err := c.profiles.Update(ctx, user.UID, update); err != nil {
			c.log.Error().Err(err).Str("uid", user.UID).Msg("failed to correct profile verification flag")
		}
	}
	return profile
}

// recordTokens replaces the ledger entries for any tokens issued with the
// event and returns the resulting ledger.
func (c *Controller) recordTokens(event AuthEvent, now time.Time) *ledger.StoredLedger {
	led, err := c.store.Read()
	if err != nil {
		c.log.Error().Err(err).Msg("failed to read token ledger")
	}
	if led == nil {
		led = &ledger.StoredLedger{}
	}

	dirty := false
	if event.Credential != nil {
		c.setCredential(event.Credential)
		led.SetRecord(ledger.NewRecord(event.Credential.IDToken, ledger.ProviderIdentity, now), now)
		dirty = true
	}
	if event.OAuthToken != "" {
		led.SetRecord(ledger.NewRecord(event.OAuthToken, ledger.ProviderGitHub, now), now)
		dirty = true
	}
	if dirty {
		if err := c.store.Write(led); err != nil {
			c.log.Error().Err(err).Msg("failed to persist token ledger")
		}
	}
	return led
}

// NewProfile builds the default profile document for a first sign-in.
func NewProfile(user *identity.UserRecord) *profiles.Profile {
	username := user.DisplayName
	if username == "" {
		username = user.Email
		if at := strings.IndexByte(username, '@'); at > 0 {
			username = username[:at]
		}
	}
	return &profiles.Profile{
		UID:           user.UID,
		Username:      username,
		Email:         user.Email,
		Provider:      string(user.Method),
		Role:          profiles.RoleUser,
		EmailVerified: user.EmailVerified,
		PhotoURL:      user.PhotoURL,
	}
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func (c *Controller) setSignedOut(tokenExpired bool) {
	c.mu.Lock()
	c.state = State{TokenExpired: tokenExpired}
	c.cred = nil
	c.mu.Unlock()
	c.monitor.Disarm()
}

func (c *Controller) setCredential(cred *identity.Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = cred
}

// refreshSource supplies the monitor with the current refresh token.
func (c *Controller) refreshSource() (refreshToken, uid string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cred == nil {
		return "", "", false
	}
	return c.cred.RefreshToken, c.cred.UID, true
}

// handleExpired is the monitor's termination callback: local state is forced
// back to signed out with the expiration surfaced.
func (c *Controller) handleExpired(ledger.Provider) {
	c.setSignedOut(true)
}

// handleRefreshed keeps the held credential current after a refresh.
func (c *Controller) handleRefreshed(cred *identity.Credential) {
	c.setCredential(cred)
}
