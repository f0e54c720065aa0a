package status_test

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/hotswap/internal/status"
)

func TestStateHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state status.State
		want  int
	}{
		{"starting is too early", status.NewStarting(), http.StatusTooEarly},
		{"running is ok", status.NewRunning(), http.StatusOK},
		{"restarting is unavailable", status.NewRestarting(), http.StatusServiceUnavailable},
		{"restart failed is unavailable", status.NewRestartFailed(), http.StatusServiceUnavailable},
		{"misconfigured is internal error", status.NewMisconfigured("bad"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.state.HTTPStatus())
		})
	}
}

func TestStateReasonOnlyForMisconfigured(t *testing.T) {
	t.Parallel()

	reason, ok := status.NewMisconfigured("server.local_hostname is required").Reason().Get()
	require.True(t, ok)
	assert.Equal(t, "server.local_hostname is required", reason)

	for _, s := range []status.State{
		status.NewStarting(), status.NewRunning(), status.NewRestarting(), status.NewRestartFailed(),
	} {
		assert.True(t, s.Reason().IsAbsent(), "%s must not carry a reason", s)
	}
}

func TestStateReady(t *testing.T) {
	t.Parallel()

	assert.True(t, status.NewRunning().Ready())
	assert.False(t, status.NewStarting().Ready())
	assert.False(t, status.NewRestartFailed().Ready())
}

func TestStateJSONHidesReason(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]any{"state": status.NewMisconfigured("secret path /etc/x")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"misconfigured"}`, string(data))
}

func TestKindNames(t *testing.T) {
	t.Parallel()

	names := make([]string, 0, len(status.Kinds()))
	for _, k := range status.Kinds() {
		names = append(names, k.String())
	}
	assert.Equal(t, []string{"starting", "running", "restarting", "restart_failed", "misconfigured"}, names)
	assert.Equal(t, "unknown", status.Kind(42).String())
}

func TestStoreStartsInStarting(t *testing.T) {
	t.Parallel()

	s := status.NewStore()
	assert.Equal(t, status.Starting, s.Get().Kind())
	assert.False(t, s.Since().IsZero())
}

func TestStoreSetReturnsPrevious(t *testing.T) {
	t.Parallel()

	var transitions [][2]status.Kind
	s := status.NewStore(status.WithTransitionHook(func(from, to status.State) {
		transitions = append(transitions, [2]status.Kind{from.Kind(), to.Kind()})
	}))

	prev := s.Set(status.NewRunning())
	assert.Equal(t, status.Starting, prev.Kind())

	prev = s.Set(status.NewMisconfigured("oops"))
	assert.Equal(t, status.Running, prev.Kind())

	assert.Equal(t, [][2]status.Kind{
		{status.Starting, status.Running},
		{status.Running, status.Misconfigured},
	}, transitions)
}

func TestStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := status.NewStore()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			st := s.Get()
			// A reason must only ever be seen together with Misconfigured.
			if st.Kind() != status.Misconfigured {
				assert.True(t, st.Reason().IsAbsent())
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.Set(status.NewMisconfigured("r"))
			s.Set(status.NewRunning())
		}
	}()

	wg.Wait()
	assert.Equal(t, status.Running, s.Get().Kind())
}
