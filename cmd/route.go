package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/dayuer/midimapper-go/internal/bus"
	"github.com/dayuer/midimapper-go/internal/config"
	"github.com/dayuer/midimapper-go/internal/lane"
	"github.com/dayuer/midimapper-go/internal/logging"
	"github.com/dayuer/midimapper-go/internal/monitor"
	"github.com/dayuer/midimapper-go/internal/ports"
	"github.com/dayuer/midimapper-go/internal/redis"
	"github.com/dayuer/midimapper-go/internal/registry"
	"github.com/dayuer/midimapper-go/internal/router"
	"github.com/dayuer/midimapper-go/internal/tui"
)

var log = logrus.WithField("component", "cmd")

func runRoute(parent context.Context, source, destination string) error {
	logOpts := logging.Options{Verbose: flagVerbose, Debug: flagDebug}
	if flagTUI {
		logOpts.File = filepath.Join(config.GetConfigDir(), "midimapper.log")
	}
	closeLog, err := logging.Setup(logOpts)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer closeLog.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := loadTable(cfg)
	if err != nil {
		return err
	}

	in, out, err := ports.Open(source, destination, ports.Options{Baud: cfg.Serial.Baud})
	if err != nil {
		return err
	}
	defer in.Close()
	if any(out) != any(in) {
		defer out.Close()
	}
	log.WithFields(logrus.Fields{"source": in.Name(), "destination": out.Name()}).Info("ports open")

	keys, closeKeys := openKeys(cfg)
	defer closeKeys.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := bus.New(bus.DefaultBuffer)

	var exec registry.Exec
	var lanes *lane.Manager
	if cfg.Router.AsyncActions {
		mode := lane.Mode(cfg.Router.LaneMode)
		lanes = lane.NewManager(lane.ManagerConfig{Mode: mode})
		defer lanes.Stop()
		log.WithField("mode", mode).Info(mode.Describe())
		exec = lanes.Exec
	}

	r, err := router.New(router.Config{
		Table:       table,
		In:          in,
		Out:         out,
		Channel:     cfg.Router.DefaultChannel,
		PollTimeout: cfg.Router.PollTimeout(),
		Keys:        keys,
		Exec:        exec,
		Bus:         events,
	})
	if err != nil {
		return err
	}

	if redis.Init(redis.Config{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Channel:  cfg.Redis.Channel,
	}) {
		defer redis.Close()
		events.Subscribe(redis.Subscriber())
	}

	if cfg.Monitor.Addr != "" {
		srv := monitor.NewServer(monitor.ServerConfig{
			Addr:  cfg.Monitor.Addr,
			Stats: func() any { return status(r, lanes, events) },
		})
		events.Subscribe(srv.Broadcast)
		go func() {
			if err := srv.Start(ctx); err != nil {
				log.WithError(err).Error("event feed stopped")
			}
		}()
	}

	var feed *tui.Feed
	if flagTUI {
		feed = tui.NewFeed(tui.DefaultHistory)
		events.Subscribe(feed.Push)
	}

	go events.Dispatch(ctx)

	if feed == nil {
		return r.Run(ctx)
	}
	return runWithTUI(ctx, r, feed, fmt.Sprintf("midimapper  %s → %s", in.Name(), out.Name()))
}

// runWithTUI runs the router in the background while the terminal view
// owns the foreground. Quitting the view stops routing.
func runWithTUI(ctx context.Context, r *router.Router, feed *tui.Feed, title string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	footer := func() string {
		s := r.Stats()
		return fmt.Sprintf("in:%d sent:%d pass:%d fired:%d missed:%d dropped:%d failed:%d pending:%d",
			s.Received, s.Sent, s.Passed, s.Fired, s.Missed, s.Dropped, s.Failed, s.Pending)
	}
	p := tea.NewProgram(tui.NewModel(title, feed, footer), tea.WithAltScreen(), tea.WithContext(ctx))

	errc := make(chan error, 1)
	go func() {
		errc <- r.Run(ctx)
		p.Quit()
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-errc
		return fmt.Errorf("terminal view: %w", err)
	}
	cancel()
	return <-errc
}

func status(r *router.Router, lanes *lane.Manager, events *bus.Bus) map[string]any {
	st := map[string]any{
		"router":          r.Stats(),
		"pendingTriggers": r.PendingIDs(),
		"eventsDropped":   events.Dropped(),
	}
	if lanes != nil {
		st["lanes"] = lanes.Stats()
	}
	return st
}
