// Package lane runs fired actions off the intake goroutine.
//
// Each key (a trigger identity or table entry) gets its own lane that
// executes jobs one at a time in submission order, so a long tap-note hold
// on one key never delays another key. Two modes are supported:
//
//   - Followup:  run every queued job in order (FIFO)
//   - Interrupt: drop queued jobs that were not started, run only the latest
package lane

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dayuer/midimapper-go/internal/action"
)

var log = logrus.WithField("component", "lane")

// Mode defines the lane processing strategy.
type Mode string

const (
	ModeFollowup  Mode = "followup"  // Run each job sequentially.
	ModeInterrupt Mode = "interrupt" // Discard queued, run latest only.
)

// job is one action execution.
type job struct {
	act action.Action
	env action.Env
}

// lane owns a single key's queue.
type lane struct {
	key        string
	queue      chan job
	idle       bool
	lastActive time.Time
	mu         sync.Mutex
}

// Manager manages lanes for all keys.
type Manager struct {
	mu          sync.Mutex
	lanes       map[string]*lane
	mode        Mode
	queueSize   int
	idleTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ManagerConfig configures a lane Manager.
type ManagerConfig struct {
	Mode        Mode
	QueueSize   int           // per-lane buffer (default 64)
	IdleTimeout time.Duration // worker exits after this long idle (default 1m)
}

// NewManager creates a lane manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Mode == "" {
		cfg.Mode = ModeFollowup
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 64
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		lanes:       make(map[string]*lane),
		mode:        cfg.Mode,
		queueSize:   cfg.QueueSize,
		idleTimeout: cfg.IdleTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Exec queues a on the lane for key and returns immediately. Its signature
// matches registry.Exec. Errors from the action are logged by the worker.
func (m *Manager) Exec(_ context.Context, key string, a action.Action, env action.Env) error {
	if m.ctx.Err() != nil {
		return fmt.Errorf("lane %s: manager stopped", key)
	}

	// queue under m.mu so an idle worker cannot retire the lane in between
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.laneLocked(key)
	select {
	case l.queue <- job{act: a, env: env}:
		return nil
	default:
		return fmt.Errorf("lane %s: queue full, dropped %s", key, a)
	}
}

// laneLocked gets or creates a lane for the given key (called under m.mu).
func (m *Manager) laneLocked(key string) *lane {
	if l, ok := m.lanes[key]; ok {
		return l
	}
	l := &lane{
		key:        key,
		queue:      make(chan job, m.queueSize),
		idle:       true,
		lastActive: time.Now(),
	}
	m.lanes[key] = l

	m.wg.Add(1)
	go m.runWorker(l)
	return l
}

// runWorker is the per-lane worker loop.
func (m *Manager) runWorker(l *lane) {
	defer m.wg.Done()
	timer := time.NewTimer(m.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case j := <-l.queue:
			if m.mode == ModeInterrupt {
				j = latest(l, j)
			}
			l.setIdle(false)
			if err := j.act.Execute(m.ctx, j.env); err != nil {
				log.WithError(err).WithFields(logrus.Fields{"lane": l.key, "action": j.act.String()}).Error("action failed")
			}
			l.setIdle(true)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(m.idleTimeout)

		case <-timer.C:
			m.mu.Lock()
			// a job may have been queued while the timer fired
			if len(l.queue) > 0 {
				m.mu.Unlock()
				timer.Reset(m.idleTimeout)
				continue
			}
			delete(m.lanes, l.key)
			m.mu.Unlock()
			return

		case <-m.ctx.Done():
			return
		}
	}
}

// latest drains the queue and returns the newest job.
func latest(l *lane, j job) job {
	for {
		select {
		case newer := <-l.queue:
			log.WithFields(logrus.Fields{"lane": l.key, "action": j.act.String()}).Debug("interrupted by newer job")
			j = newer
		default:
			return j
		}
	}
}

func (l *lane) setIdle(idle bool) {
	l.mu.Lock()
	l.idle = idle
	l.lastActive = time.Now()
	l.mu.Unlock()
}

// Stop cancels running actions and waits for every worker to exit.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Stats returns lane manager statistics.
func (m *Manager) Stats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]any{
		"totalLanes":  len(m.lanes),
		"activeLanes": m.activeLocked(),
		"mode":        string(m.mode),
	}
}

// ActiveCount returns the number of lanes currently running an action.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked()
}

func (m *Manager) activeLocked() int {
	count := 0
	for _, l := range m.lanes {
		l.mu.Lock()
		if !l.idle {
			count++
		}
		l.mu.Unlock()
	}
	return count
}

// Describe returns a string describing the lane mode.
func (mode Mode) Describe() string {
	switch mode {
	case ModeFollowup:
		return "Run each action sequentially"
	case ModeInterrupt:
		return "Discard queued actions, run only the latest"
	default:
		return fmt.Sprintf("Unknown mode: %s", string(mode))
	}
}
