package cli

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipedeck/console/internal/identity"
	"github.com/pipedeck/console/internal/identity/identitytest"
	"github.com/pipedeck/console/internal/models"
	"github.com/pipedeck/console/internal/sessions"
	"github.com/pipedeck/console/internal/storage"
)

func newLoginFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{Use: "login"}
	cmd.Flags().String("token", "", "")
	cmd.Flags().String("session-id", "", "")
	cmd.Flags().String("user", "", "")
	require.NoError(t, cmd.ParseFlags(args))

	return cmd
}

func TestLoginRequestFromFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectError bool
		expected    models.LoginRequest
	}{
		{
			name: "all flags",
			args: []string{"--token", "tok", "--session-id", "sid", "--user", `{"name":"Ada"}`},
			expected: models.LoginRequest{
				Token:     "tok",
				SessionID: "sid",
				User:      models.UserProfile{"name": "Ada"},
			},
		},
		{
			name:     "user omitted",
			args:     []string{"--token", "tok"},
			expected: models.LoginRequest{Token: "tok"},
		},
		{
			name:        "null user",
			args:        []string{"--token", "tok", "--user", "null"},
			expectError: true,
		},
		{
			name:        "user is not an object",
			args:        []string{"--token", "tok", "--user", `["ada"]`},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request, err := loginRequestFromFlags(newLoginFlags(t, tt.args...))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, request)
		})
	}
}

func newStatusManager(t *testing.T) (*sessions.Manager, *storage.MemoryStore, *identitytest.Server) {
	t.Helper()

	stub := identitytest.NewServer(t)
	client, err := identity.NewClient(stub.URL)
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	return sessions.NewManager(store, client), store, stub
}

func TestStatusModel_Initialize(t *testing.T) {
	manager, store, stub := newStatusManager(t)

	profile := models.UserProfile{"name": "Ada"}
	stub.Grant("tok", profile)

	require.NoError(t, store.Set(models.StorageKeyToken, "tok"))
	require.NoError(t, store.Set(models.StorageKeyUser, `{"name":"Ada"}`))

	model := newStatusModel(context.Background(), manager)
	assert.Contains(t, model.View(), "Restoring session")

	updated, _ := model.Update(stateMsg{state: sessions.State{User: profile, IsLoading: true}})
	model = updated.(statusModel)
	assert.Contains(t, model.View(), "Verifying session for Ada")

	updated, cmd := model.Update(model.initialize())
	model = updated.(statusModel)

	require.NotNil(t, model.result)
	assert.Equal(t, sessions.OutcomeAuthenticated, model.result.Outcome)
	assert.True(t, model.state.IsAuthenticated())
	assert.NotNil(t, cmd)
	assert.Empty(t, model.View())
}

func TestStatusModel_NoCredential(t *testing.T) {
	manager, _, stub := newStatusManager(t)

	model := newStatusModel(context.Background(), manager)
	updated, _ := model.Update(model.initialize())
	model = updated.(statusModel)

	require.NotNil(t, model.result)
	assert.Equal(t, sessions.OutcomeNoCredential, model.result.Outcome)
	assert.Equal(t, sessions.ActionRedirect, sessions.Gate(model.state).Action)
	assert.Zero(t, stub.MeCalls())
}

func TestFormatLogEntry(t *testing.T) {
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	line := formatLogEntry(&models.LogEntry{
		Time:    at,
		Level:   logrus.WarnLevel,
		Message: "Session verification failed",
		Error:   "identity service rejected credential",
	})

	assert.Contains(t, line, "15:04:05")
	assert.Contains(t, line, "WARNING")
	assert.Contains(t, line, "Session verification failed: identity service rejected credential")
}
