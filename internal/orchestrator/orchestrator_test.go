package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/config"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
)

// fakeRemote tracks reconnect calls without a real session.
type fakeRemote struct {
	active     bool
	reconnects int
}

func (s *fakeRemote) Cd(dir string) error { return nil }

func (s *fakeRemote) List() ([]models.RemoteEntry, error) { return nil, nil }

func (s *fakeRemote) Download(remote, local string) error { return nil }

func (s *fakeRemote) IsActive() bool { return s.active }

func (s *fakeRemote) Reconnections() int { return s.reconnects }
func (s *fakeRemote) ForceReconnect() error {
	s.reconnects++
	return nil
}

func newCadenceOrchestrator(reconnectEvery int, active bool) (*Orchestrator, *fakeRemote) {
	session := &fakeRemote{active: active}
	o := &Orchestrator{
		cfg:     &config.Config{ReconnectEvery: reconnectEvery},
		session: session,
	}
	return o, session
}

func TestEnsureSession(t *testing.T) {
	t.Run("should not reconnect a healthy session before the cadence", func(t *testing.T) {
		o, session := newCadenceOrchestrator(10, true)

		for idx := 0; idx < 10; idx++ {
			require.NoError(t, o.ensureSession(idx))
		}

		assert.Equal(t, 0, session.reconnects)
	})

	t.Run("should reconnect at every cadence boundary", func(t *testing.T) {
		o, session := newCadenceOrchestrator(10, true)

		for idx := 0; idx <= 30; idx++ {
			require.NoError(t, o.ensureSession(idx))
		}

		assert.Equal(t, 3, session.reconnects)
	})

	t.Run("should reconnect every contract when the cadence is one", func(t *testing.T) {
		o, session := newCadenceOrchestrator(1, true)

		for idx := 0; idx < 5; idx++ {
			require.NoError(t, o.ensureSession(idx))
		}

		assert.Equal(t, 4, session.reconnects)
	})

	t.Run("should reconnect a dead session regardless of cadence", func(t *testing.T) {
		o, session := newCadenceOrchestrator(10, false)

		require.NoError(t, o.ensureSession(3))

		assert.Equal(t, 1, session.reconnects)
	})
}
