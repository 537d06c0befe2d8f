package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/dayuer/midimapper-go/internal/action"
	"github.com/dayuer/midimapper-go/internal/config"
	"github.com/dayuer/midimapper-go/internal/keystroke"
	"github.com/dayuer/midimapper-go/internal/mapping"
	"github.com/dayuer/midimapper-go/internal/ports"
	"github.com/dayuer/midimapper-go/internal/router"
	"github.com/dayuer/midimapper-go/internal/tui"
)

// loadConfig reads the config file named by --config, or the default one.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// loadTable builds the action table from --mapping, router.mapping or the
// built-in default, in that order.
func loadTable(cfg config.Config) (router.Table, error) {
	opts := mapping.Options{LongPress: cfg.Router.LongPress()}
	path := flagMapping
	if path == "" {
		path = cfg.Router.Mapping
	}
	if path == "" {
		return mapping.Default(opts)
	}
	return mapping.Load(path, opts)
}

// openKeys returns the keystroke injector and a closer. Injection that is
// disabled or unavailable yields a nil injector, so keystroke actions no-op.
func openKeys(cfg config.Config) (action.Injector, io.Closer) {
	if !cfg.Keystroke.Enabled {
		return nil, io.NopCloser(nil)
	}
	name := cfg.Keystroke.DeviceName
	if name == "" {
		name = keystroke.DefaultDeviceName
	}
	u, err := keystroke.New(name)
	if err != nil {
		if errors.Is(err, keystroke.ErrUnavailable) {
			log.WithError(err).Warn("keystroke injection unavailable, keystroke actions will be skipped")
		} else {
			log.WithError(err).Error("keystroke injection failed to start")
		}
		return nil, io.NopCloser(nil)
	}
	return u, u
}

func printPorts(w io.Writer) {
	fmt.Fprint(w, tui.RenderPorts(ports.List()))
}
