package lane

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/midimapper-go/internal/action"
)

// stepAction appends its name to a shared log, optionally blocking first.
type stepAction struct {
	name string
	wait chan struct{}
	log  *stepLog
}

type stepLog struct {
	mu    sync.Mutex
	names []string
}

func (l *stepLog) add(n string) {
	l.mu.Lock()
	l.names = append(l.names, n)
	l.mu.Unlock()
}

func (l *stepLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

func (s *stepAction) Execute(ctx context.Context, _ action.Env) error {
	if s.wait != nil {
		select {
		case <-s.wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.log.add(s.name)
	return nil
}

func (s *stepAction) String() string { return s.name }

func TestFollowup_PreservesOrder(t *testing.T) {
	m := NewManager(ManagerConfig{})
	defer m.Stop()

	log := &stepLog{}
	gate := make(chan struct{})
	require.NoError(t, m.Exec(context.Background(), "k", &stepAction{name: "a", wait: gate, log: log}, action.Env{}))
	require.NoError(t, m.Exec(context.Background(), "k", &stepAction{name: "b", log: log}, action.Env{}))
	require.NoError(t, m.Exec(context.Background(), "k", &stepAction{name: "c", log: log}, action.Env{}))
	close(gate)

	assert.Eventually(t, func() bool { return len(log.get()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, log.get())
}

func TestExec_DoesNotBlockOtherKeys(t *testing.T) {
	m := NewManager(ManagerConfig{})
	defer m.Stop()

	log := &stepLog{}
	gate := make(chan struct{})
	defer close(gate)

	require.NoError(t, m.Exec(context.Background(), "slow", &stepAction{name: "held", wait: gate, log: log}, action.Env{}))
	require.NoError(t, m.Exec(context.Background(), "fast", &stepAction{name: "quick", log: log}, action.Env{}))

	assert.Eventually(t, func() bool { return len(log.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"quick"}, log.get())
	assert.Equal(t, 1, m.ActiveCount())
}

func TestInterrupt_RunsLatestOnly(t *testing.T) {
	m := NewManager(ManagerConfig{Mode: ModeInterrupt})
	defer m.Stop()

	log := &stepLog{}
	gate := make(chan struct{})
	require.NoError(t, m.Exec(context.Background(), "k", &stepAction{name: "first", wait: gate, log: log}, action.Env{}))
	// wait until the first job is running so the rest queue behind it
	assert.Eventually(t, func() bool { return m.ActiveCount() == 1 }, time.Second, 5*time.Millisecond)
	for _, n := range []string{"x", "y", "z"} {
		require.NoError(t, m.Exec(context.Background(), "k", &stepAction{name: n, log: log}, action.Env{}))
	}
	close(gate)

	assert.Eventually(t, func() bool { return len(log.get()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"first", "z"}, log.get())
}

func TestExec_QueueFull(t *testing.T) {
	m := NewManager(ManagerConfig{QueueSize: 1})
	defer m.Stop()

	log := &stepLog{}
	gate := make(chan struct{})
	defer close(gate)

	require.NoError(t, m.Exec(context.Background(), "k", &stepAction{name: "a", wait: gate, log: log}, action.Env{}))
	assert.Eventually(t, func() bool { return m.ActiveCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, m.Exec(context.Background(), "k", &stepAction{name: "b", log: log}, action.Env{}))
	assert.Error(t, m.Exec(context.Background(), "k", &stepAction{name: "c", log: log}, action.Env{}))
}

func TestIdleLaneRetires(t *testing.T) {
	m := NewManager(ManagerConfig{IdleTimeout: 20 * time.Millisecond})
	defer m.Stop()

	log := &stepLog{}
	require.NoError(t, m.Exec(context.Background(), "k", &stepAction{name: "a", log: log}, action.Env{}))
	assert.Eventually(t, func() bool { return m.Stats()["totalLanes"] == 0 }, time.Second, 5*time.Millisecond)

	// a retired key gets a fresh lane
	require.NoError(t, m.Exec(context.Background(), "k", &stepAction{name: "b", log: log}, action.Env{}))
	assert.Eventually(t, func() bool { return len(log.get()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestStop_CancelsRunningAndRejectsNew(t *testing.T) {
	m := NewManager(ManagerConfig{})
	log := &stepLog{}
	require.NoError(t, m.Exec(context.Background(), "k", &stepAction{name: "never", wait: make(chan struct{}), log: log}, action.Env{}))
	assert.Eventually(t, func() bool { return m.ActiveCount() == 1 }, time.Second, 5*time.Millisecond)

	m.Stop()
	assert.Empty(t, log.get())
	assert.Error(t, m.Exec(context.Background(), "k", &stepAction{name: "late", log: log}, action.Env{}))
}

func TestMode_Describe(t *testing.T) {
	assert.Contains(t, ModeFollowup.Describe(), "sequentially")
	assert.Contains(t, ModeInterrupt.Describe(), "latest")
	assert.Contains(t, Mode("bogus").Describe(), "Unknown")
}
