// Package redis publishes router events to a Redis pub/sub channel so other
// processes (lighting rigs, loggers, dashboards) can follow what the pedal
// board does.
//
// Graceful fallback: if Redis is unavailable, publishing silently does
// nothing instead of blocking the router.
package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dayuer/midimapper-go/internal/bus"
)

var log = logrus.WithField("component", "redis")

// DefaultChannel is used when Config.Channel is empty.
const DefaultChannel = "midimapper:events"

// Config holds Redis connection settings.
type Config struct {
	URL      string // redis://host:port
	Password string
	DB       int
	Channel  string
}

var (
	client    *redis.Client
	channel   = DefaultChannel
	connected bool
	mu        sync.RWMutex
)

// Init initializes the Redis connection. Returns true if connected.
func Init(cfg Config) bool {
	if cfg.URL == "" {
		log.Debug("URL not configured, skipping init")
		return false
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.WithError(err).Warn("invalid URL")
		return false
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3

	c := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("connection failed")
		c.Close()
		return false
	}

	mu.Lock()
	client = c
	connected = true
	if cfg.Channel != "" {
		channel = cfg.Channel
	}
	mu.Unlock()

	log.WithField("channel", Channel()).Info("connected")
	return true
}

// Close closes the Redis connection.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if client != nil {
		client.Close()
		client = nil
		connected = false
		log.Info("connection closed")
	}
}

// Client returns the Redis client. Returns nil if not available.
func Client() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	if connected {
		return client
	}
	return nil
}

// IsAvailable checks if Redis is connected.
func IsAvailable() bool {
	mu.RLock()
	defer mu.RUnlock()
	return connected && client != nil
}

// Channel returns the pub/sub channel events go to.
func Channel() string {
	mu.RLock()
	defer mu.RUnlock()
	return channel
}

// --- Event publishing (with graceful fallback) ---

// PublishEvent sends ev as JSON. Returns false if unavailable or on failure.
func PublishEvent(ctx context.Context, ev bus.Event) bool {
	c := Client()
	if c == nil {
		return false
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Warn("event marshal failed")
		return false
	}
	if err := c.Publish(ctx, Channel(), data).Err(); err != nil {
		log.WithError(err).Debug("publish failed")
		return false
	}
	return true
}

// Subscriber returns a bus callback that publishes each event with a short
// timeout.
func Subscriber() func(bus.Event) {
	return func(ev bus.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		PublishEvent(ctx, ev)
	}
}
