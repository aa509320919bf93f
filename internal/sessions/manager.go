package sessions

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/pipedeck/console/internal/identity"
	"github.com/pipedeck/console/internal/metrics"
	"github.com/pipedeck/console/internal/models"
	"github.com/pipedeck/console/internal/storage"
)

// DefaultTimeout bounds identity calls made without a caller deadline.
const DefaultTimeout = 10 * time.Second

var (
	ErrMalformedProfile = errors.New("stored user profile is malformed")
	ErrMissingToken     = errors.New("access token is required")
)

// IdentityService verifies and terminates credentials remotely.
type IdentityService interface {
	Me(ctx context.Context, credential models.Credential) (models.UserProfile, error)
	Logout(ctx context.Context, credential models.Credential) error
}

// Manager owns the authenticated-user state of one console. It reconciles
// the in-memory state with durable storage on every transition.
type Manager struct {
	op sync.Mutex // one operation at a time, so storage writes never interleave

	store    storage.Store
	identity IdentityService
	clock    clockwork.Clock
	timeout  time.Duration

	reportGauge bool

	mu        sync.RWMutex
	state     State
	lastError *Failure
	listeners map[int]func(State)
	nextID    int
}

type Option func(*Manager)

func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithAuthenticatedGauge controls whether the manager drives the process-wide
// authenticated gauge. Disable it when many short-lived managers share a
// process, one per request.
func WithAuthenticatedGauge(enabled bool) Option {
	return func(m *Manager) {
		m.reportGauge = enabled
	}
}

// WithTimeout sets the bound applied to identity calls whose context has no
// deadline. Zero or negative disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

func NewManager(store storage.Store, identity IdentityService, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		identity:    identity,
		clock:       clockwork.NewRealClock(),
		timeout:     DefaultTimeout,
		reportGauge: true,
		listeners:   make(map[int]func(State)),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.state.UpdatedAt = m.clock.Now().UTC()

	return m
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot()
}

func (m *Manager) IsAuthenticated() bool {
	return m.State().IsAuthenticated()
}

// LastError returns the most recent recovered failure, or nil.
func (m *Manager) LastError() *Failure {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastError == nil {
		return nil
	}
	failure := *m.lastError
	return &failure
}

// Subscribe registers fn to receive every state change. fn runs on the
// goroutine performing the operation and must not call back into Login,
// Logout, RefreshUser or Initialize. The returned func removes the
// subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Initialize restores the session persisted by a previous run and verifies
// it. It runs once; later calls return the current state untouched.
func (m *Manager) Initialize(ctx context.Context) Result {
	m.op.Lock()
	defer m.op.Unlock()

	if current := m.State(); current.Phase != PhaseUninitialized {
		return Result{Outcome: outcomeFor(current), State: current}
	}

	logrus.Debugln("Initializing session")

	m.update("initialize", func(s *State) {
		s.IsLoading = true
		s.Phase = PhaseInitializing
	})

	result := m.initialize(ctx)

	m.update("initialize", func(s *State) {
		s.IsLoading = false
		s.Phase = phaseFor(s.User)
	})

	result.State = m.State()

	logrus.WithFields(logrus.Fields{
		"outcome": result.Outcome.String(),
		"phase":   result.State.Phase.String(),
	}).Debugln("Session initialized")

	return result
}

func (m *Manager) initialize(ctx context.Context) Result {

	_, hasCredential, err := m.readCredential()
	if err != nil {
		return m.fail("initialize", OutcomeStorageFailure, err)
	}

	rawProfile, hasProfile, err := m.store.Get(models.StorageKeyUser)
	if err != nil {
		return m.fail("initialize", OutcomeStorageFailure, err)
	}

	if !hasCredential || !hasProfile {
		return Result{Outcome: OutcomeNoCredential}
	}

	profile, err := models.ParseUserProfile(rawProfile)
	if err != nil {
		logrus.WithError(err).Warnln("Cached user profile is unreadable, clearing stored session")
		if clearErr := m.clearStorage(); clearErr != nil {
			err = errors.Join(err, clearErr)
		}
		return m.fail("initialize", OutcomeMalformedProfile, fmt.Errorf("%w: %w", ErrMalformedProfile, err))
	}

	// Show the cached profile straight away; verification may replace it.
	m.setUser("initialize", profile)

	return m.refresh(ctx, "initialize")
}

// Login persists a credential already obtained from the identity service and
// marks the session authenticated. It makes no network call. The only error
// is a failure to persist, in which case the in-memory state is unchanged.
func (m *Manager) Login(accessToken string, sessionID string, profile models.UserProfile) error {
	m.op.Lock()
	defer m.op.Unlock()

	if len(accessToken) == 0 {
		return ErrMissingToken
	}

	encoded, err := profile.Encode()
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user": profile.GetIdentity(),
	}).Debugln("Storing session credential")

	values := []struct{ key, value string }{
		{models.StorageKeyToken, accessToken},
		{models.StorageKeySessionID, sessionID},
		{models.StorageKeyUser, encoded},
	}

	for _, v := range values {
		if err := m.store.Set(v.key, v.value); err != nil {
			// Never leave a half-written credential pair behind.
			if clearErr := m.clearStorage(); clearErr != nil {
				logrus.WithError(clearErr).Errorln("Failed to clear partially written session")
			}
			m.recordFailure("login", OutcomeStorageFailure, err)
			return fmt.Errorf("failed to persist %s: %w", v.key, err)
		}
	}

	m.setUser("login", profile)

	return nil
}

// Logout ends the session locally and, when a token is held, remotely. The
// local outcome never depends on the identity service being reachable.
func (m *Manager) Logout(ctx context.Context) Result {
	m.op.Lock()
	defer m.op.Unlock()

	var failures []error

	credential, hasCredential, err := m.readCredential()
	if err != nil {
		failures = append(failures, err)
	} else if hasCredential {

		callCtx, cancel := m.withTimeout(ctx)
		err := m.identity.Logout(callCtx, credential)
		cancel()

		if err != nil {
			logrus.WithError(err).Warnln("Remote logout failed, clearing local session anyway")
			failures = append(failures, err)
		}
	}

	m.setUser("logout", nil)

	if err := m.clearStorage(); err != nil {
		logrus.WithError(err).Errorln("Failed to clear stored session")
		failures = append(failures, err)
	}

	result := Result{Outcome: OutcomeLoggedOut}

	if len(failures) > 0 {
		result.Err = errors.Join(failures...)
		m.recordFailure("logout", OutcomeLoggedOut, result.Err)
	}

	result.State = m.State()
	return result
}

// RefreshUser re-validates the stored credential. Any failure demotes the
// session to unauthenticated and clears storage; nothing is returned as an
// error beyond the diagnostic in Result.
func (m *Manager) RefreshUser(ctx context.Context) Result {
	m.op.Lock()
	defer m.op.Unlock()

	result := m.refresh(ctx, "refresh")
	result.State = m.State()
	return result
}

// refresh must be called with m.op held.
func (m *Manager) refresh(ctx context.Context, operation string) Result {

	credential, hasCredential, err := m.readCredential()
	if err != nil {
		m.setUser(operation, nil)
		return m.fail(operation, OutcomeStorageFailure, err)
	}

	if !hasCredential {
		m.setUser(operation, nil)
		return Result{Outcome: OutcomeNoCredential}
	}

	callCtx, cancel := m.withTimeout(ctx)
	defer cancel()

	profile, err := m.identity.Me(callCtx, credential)
	if err != nil {

		outcome := OutcomeTransportFailure
		if errors.Is(err, identity.ErrInvalidCredential) {
			outcome = OutcomeInvalidated
		}

		logrus.WithError(err).WithFields(logrus.Fields{
			"operation": operation,
			"outcome":   outcome.String(),
		}).Warnln("Session verification failed, clearing stored session")

		if clearErr := m.clearStorage(); clearErr != nil {
			err = errors.Join(err, clearErr)
		}
		m.setUser(operation, nil)

		return m.fail(operation, outcome, err)
	}

	m.setUser(operation, profile)

	// Keep the cached copy fresh for the next cold start.
	encoded, err := profile.Encode()
	if err == nil {
		err = m.store.Set(models.StorageKeyUser, encoded)
	}
	if err != nil {
		logrus.WithError(err).Warnln("Failed to cache refreshed user profile")
		m.recordFailure(operation, OutcomeStorageFailure, err)
		return Result{Outcome: OutcomeAuthenticated, Err: err}
	}

	return Result{Outcome: OutcomeAuthenticated}
}

func (m *Manager) readCredential() (models.Credential, bool, error) {

	token, ok, err := m.store.Get(models.StorageKeyToken)
	if err != nil {
		return models.Credential{}, false, fmt.Errorf("failed to read token: %w", err)
	}
	if !ok || len(token) == 0 {
		return models.Credential{}, false, nil
	}

	sessionID, _, err := m.store.Get(models.StorageKeySessionID)
	if err != nil {
		return models.Credential{}, false, fmt.Errorf("failed to read session id: %w", err)
	}

	return models.Credential{AccessToken: token, SessionID: sessionID}, true, nil
}

func (m *Manager) clearStorage() error {
	return m.store.Remove(models.StorageKeys...)
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

func (m *Manager) fail(operation string, outcome Outcome, err error) Result {
	m.recordFailure(operation, outcome, err)
	return Result{Outcome: outcome, Err: err}
}

func (m *Manager) recordFailure(operation string, outcome Outcome, err error) {
	metrics.SessionFailuresTotal.WithLabelValues(operation, outcome.String()).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastError = &Failure{
		Operation: operation,
		Outcome:   outcome,
		Err:       err,
		At:        m.clock.Now().UTC(),
	}
}

func (m *Manager) setUser(operation string, user models.UserProfile) {
	// Callers keep ownership of the map they passed in.
	user = maps.Clone(user)

	m.update(operation, func(s *State) {
		s.User = user
		// Initialize settles the phase itself once loading ends.
		if s.Phase != PhaseInitializing {
			s.Phase = phaseFor(user)
		}
	})
}

func (m *Manager) update(operation string, apply func(*State)) {

	m.mu.Lock()
	apply(&m.state)
	m.state.UpdatedAt = m.clock.Now().UTC()
	state := m.snapshot()
	listeners := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	metrics.SessionTransitionsTotal.WithLabelValues(operation, state.Phase.String()).Inc()
	if m.reportGauge {
		if state.IsAuthenticated() {
			metrics.SessionAuthenticated.Set(1)
		} else {
			metrics.SessionAuthenticated.Set(0)
		}
	}

	for _, fn := range listeners {
		fn(state)
	}
}

// snapshot must be called with m.mu held.
func (m *Manager) snapshot() State {
	state := m.state
	if state.User != nil {
		state.User = maps.Clone(state.User)
	}
	return state
}

func phaseFor(user models.UserProfile) Phase {
	if user != nil {
		return PhaseAuthenticated
	}
	return PhaseUnauthenticated
}

func outcomeFor(state State) Outcome {
	if state.IsAuthenticated() {
		return OutcomeAuthenticated
	}
	return OutcomeNoCredential
}
