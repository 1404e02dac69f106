package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/webcraft/account-gateway/identity"
	"github.com/webcraft/account-gateway/internal/metrics"
	"github.com/webcraft/account-gateway/ledger"
)

const (
	// DefaultSweepInterval is the coarse expiration sweep.
	DefaultSweepInterval = 30 * time.Minute
	// DefaultRefreshInterval is the faster check that runs while a session is
	// active, to catch the refresh threshold promptly.
	DefaultRefreshInterval = 5 * time.Minute
)

// RefreshResult reports the outcome of a token refresh pass. Provider
// failures land in Errors; ForceRefresh never returns a Go error.
type RefreshResult struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// RefreshSource supplies the refresh token and uid of the current session,
// if any.
type RefreshSource func() (refreshToken, uid string, ok bool)

// Monitor decides on a schedule, and on demand via Wake, whether the current
// session is expired or due for a proactive refresh, and drives the
// appropriate action.
type Monitor struct {
	provider    identity.Provider
	store       ledger.Store
	source      RefreshSource
	onExpired   func(provider ledger.Provider)
	onRefreshed func(cred *identity.Credential)
	log         zerolog.Logger
	nowTime     func() time.Time
	metrics     metrics.Collector

	sweepInterval   time.Duration
	refreshInterval time.Duration

	armed    atomic.Bool
	wake     chan struct{}
	stopc    chan struct{}
	stopOnce sync.Once

	expiredNotice bool
}

// MonitorOption defines a function type to modify the Monitor instance.
type MonitorOption func(*Monitor)

// WithMonitorNowTime sets the now time function (primarily for testing)
func WithMonitorNowTime(nowFunc func() time.Time) MonitorOption {
	return func(m *Monitor) {
		m.nowTime = nowFunc
	}
}

// WithIntervals overrides the sweep and refresh check intervals.
func WithIntervals(sweep, refresh time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.sweepInterval = sweep
		m.refreshInterval = refresh
	}
}

// WithMonitorLogger sets the logger.
func WithMonitorLogger(log zerolog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.log = log
	}
}

// WithMonitorMetrics sets the metrics collector.
func WithMonitorMetrics(collector metrics.Collector) MonitorOption {
	return func(m *Monitor) {
		m.metrics = collector
	}
}

func newMonitor(
	provider identity.Provider,
	store ledger.Store,
	source RefreshSource,
	onExpired func(provider ledger.Provider),
	onRefreshed func(cred *identity.Credential),
	options ...MonitorOption,
) *Monitor {
	m := &Monitor{
		provider:        provider,
		store:           store,
		source:          source,
		onExpired:       onExpired,
		onRefreshed:     onRefreshed,
		log:             zerolog.Nop(),
		nowTime:         time.Now,
		metrics:         metrics.Nop{},
		sweepInterval:   DefaultSweepInterval,
		refreshInterval: DefaultRefreshInterval,
		wake:            make(chan struct{}, 1),
		stopc:           make(chan struct{}),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Start surfaces a previously recorded session-expired flag at most once,
// then runs the periodic checks until ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	expired, err := m.store.TakeFlag(ledger.FlagSessionExpired)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to read session-expired flag")
	}
	if expired {
		m.expiredNotice = true
		m.log.Warn().Msg("previous session expired")
	}

	go m.run(ctx)
}

// Stop halts the periodic checks. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopc)
	})
}

// ExpiredNotice reports whether the previous run ended in a detected
// expiration. The underlying flag was already cleared at Start.
func (m *Monitor) ExpiredNotice() bool {
	return m.expiredNotice
}

// Arm enables the refresh check. It is armed while a user session is active.
func (m *Monitor) Arm() {
	m.armed.Store(true)
}

// Disarm disables the refresh check.
func (m *Monitor) Disarm() {
	m.armed.Store(false)
}

// Wake requests an immediate expiration check, the equivalent of the client
// regaining visibility. Non-blocking; a pending wake is coalesced.
func (m *Monitor) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Monitor) run(ctx context.Context) {
	sweep := time.NewTicker(m.sweepInterval)
	defer sweep.Stop()
	refresh := time.NewTicker(m.refreshInterval)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopc:
			return
		case <-sweep.C:
			m.CheckExpiration(ctx)
		case <-m.wake:
			m.CheckExpiration(ctx)
		case <-refresh.C:
			if m.armed.Load() {
				m.checkRefresh(ctx)
			}
		}
	}
}

// CheckExpiration reads the ledger and, if any provider's record has
// expired, terminates the session and reports which provider triggered it.
func (m *Monitor) CheckExpiration(ctx context.Context) (bool, ledger.Provider) {
	led, err := m.store.Read()
	if err != nil {
		m.log.Error().Err(err).Msg("failed to read token ledger")
		return false, ""
	}
	if led == nil {
		return false, ""
	}

	now := m.nowTime()
	for _, provider := range []ledger.Provider{ledger.ProviderIdentity, ledger.ProviderGitHub} {
		record := led.Record(provider)
		if record == nil || !ledger.Expired(record, now) {
			continue
		}
		m.log.Warn().Str("provider", string(provider)).Msg("session token expired")
		m.terminate(ctx, provider)
		return true, provider
	}
	return false, ""
}

// terminate clears all token state, signs the user out of the identity
// provider and records a one-shot expired flag for the next load.
func (m *Monitor) terminate(ctx context.Context, provider ledger.Provider) {
	if err := m.store.Clear(); err != nil {
		m.log.Error().Err(err).Msg("failed to clear token ledger")
	}
	if err := m.store.SetFlag(ledger.FlagSessionExpired); err != nil {
		m.log.Error().Err(err).Msg("failed to record session-expired flag")
	}

	if _, uid, ok := m.source(); ok {
		if err := m.provider.RevokeTokens(ctx, uid); err != nil {
			m.log.Error().Err(err).Str("uid", uid).Msg("failed to sign out expired session")
		}
	}

	m.metrics.RecordSessionExpired(string(provider))
	if m.onExpired != nil {
		m.onExpired(provider)
	}
}

func (m *Monitor) checkRefresh(ctx context.Context) {
	led, err := m.store.Read()
	if err != nil || led == nil {
		return
	}
	if ledger.NeedsRefresh(led.Record(ledger.ProviderIdentity), m.nowTime()) {
		m.ForceRefresh(ctx)
	}
}

// ForceRefresh requests a fresh token from the identity provider and updates
// the ledger. The secondary OAuth provider cannot be refreshed without the
// user re-authenticating, so its record is left untouched with no error.
func (m *Monitor) ForceRefresh(ctx context.Context) RefreshResult {
	result := RefreshResult{Success: true}

	refreshToken, _, ok := m.source()
	if !ok {
		m.metrics.RecordTokenRefresh(false)
		return RefreshResult{Success: false, Errors: []string{"no active session to refresh"}}
	}

	cred, err := m.provider.RefreshIDToken(ctx, refreshToken)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to refresh identity token")
		m.metrics.RecordTokenRefresh(false)
		return RefreshResult{Success: false, Errors: []string{"failed to refresh identity token"}}
	}

	now := m.nowTime()
	led, err := m.store.Read()
	if err != nil || led == nil {
		led = &ledger.StoredLedger{}
	}
	led.SetRecord(ledger.NewRecord(cred.IDToken, ledger.ProviderIdentity, now), now)
	if err := m.store.Write(led); err != nil {
		m.log.Error().Err(err).Msg("failed to persist refreshed token")
		result.Success = false
		result.Errors = append(result.Errors, "failed to persist refreshed token")
	}

	if m.onRefreshed != nil {
		m.onRefreshed(cred)
	}
	m.metrics.RecordTokenRefresh(result.Success)
	return result
}
