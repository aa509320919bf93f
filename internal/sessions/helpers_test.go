package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/pipedeck/console/internal/identity"
	"github.com/pipedeck/console/internal/models"
	"github.com/pipedeck/console/internal/storage"
)

// fakeIdentity stands in for the identity service.
type fakeIdentity struct {
	mu          sync.Mutex
	profile     models.UserProfile
	meErr       error
	logoutErr   error
	hang        bool
	meCalls     int
	logoutCalls int
	lastCred    models.Credential
}

func (f *fakeIdentity) Me(ctx context.Context, credential models.Credential) (models.UserProfile, error) {
	f.mu.Lock()
	f.meCalls++
	f.lastCred = credential
	hang, profile, err := f.hang, f.profile, f.meErr
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", identity.ErrTransport, ctx.Err())
	}

	return profile, err
}

func (f *fakeIdentity) Logout(ctx context.Context, credential models.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	f.lastCred = credential
	return f.logoutErr
}

func (f *fakeIdentity) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meCalls, f.logoutCalls
}

// flakyStore fails writes or reads on demand.
type flakyStore struct {
	*storage.MemoryStore
	setErr    error
	getErr    error
	removeErr error
}

func (s *flakyStore) Get(key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	return s.MemoryStore.Get(key)
}

func (s *flakyStore) Set(key string, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.MemoryStore.Set(key, value)
}

func (s *flakyStore) Remove(keys ...string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	return s.MemoryStore.Remove(keys...)
}

var errDiskFull = errors.New("disk full")

func newTestManager(t *testing.T, store storage.Store, svc IdentityService) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	return NewManager(store, svc, WithClock(clock), WithTimeout(time.Second)), clock
}

// seed writes a persisted session as a previous run would have left it.
func seed(t *testing.T, store storage.Store, token, sessionID, profile string) {
	t.Helper()
	if len(token) > 0 {
		require.NoError(t, store.Set(models.StorageKeyToken, token))
	}
	if len(sessionID) > 0 {
		require.NoError(t, store.Set(models.StorageKeySessionID, sessionID))
	}
	if len(profile) > 0 {
		require.NoError(t, store.Set(models.StorageKeyUser, profile))
	}
}
