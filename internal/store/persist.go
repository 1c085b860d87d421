package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"renewdesk/internal/metrics"
)

// PrefsRepository reads and writes the serialized preferences of a profile.
type PrefsRepository interface {
	LoadPrefs(ctx context.Context, profile string) ([]byte, bool, error)
	SavePrefs(ctx context.Context, profile string, payload []byte) error
}

// Rehydrate loads persisted preferences. Missing, unreadable or corrupt data
// yields DefaultPrefs; it never fails startup.
func Rehydrate(ctx context.Context, repo PrefsRepository, profile string, logger *slog.Logger) Prefs {
	defaults := DefaultPrefs()
	payload, found, err := repo.LoadPrefs(ctx, profile)
	if err != nil {
		logger.Warn("load persisted prefs failed, using defaults", "profile", profile, "error", err)
		return defaults
	}
	if !found || len(payload) == 0 {
		return defaults
	}

	prefs := defaults
	if err := json.Unmarshal(payload, &prefs); err != nil {
		logger.Warn("persisted prefs are corrupt, using defaults", "profile", profile, "error", err)
		return defaults
	}
	if prefs.Theme != ThemeDark && prefs.Theme != ThemeLight {
		prefs.Theme = defaults.Theme
	}
	prefs.Filters = normaliseFilters(prefs.Filters)
	return prefs
}

// Flusher writes the newest published preferences in the background.
// Publishing never blocks; bursts collapse into a single write of the last value.
type Flusher struct {
	repo    PrefsRepository
	profile string
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu      sync.Mutex
	pending *Prefs
	wake    chan struct{}
}

// NewFlusher creates a flusher for profile.
func NewFlusher(repo PrefsRepository, profile string, logger *slog.Logger, m *metrics.Metrics) *Flusher {
	return &Flusher{
		repo:    repo,
		profile: profile,
		logger:  logger.With("component", "prefs_flusher"),
		metrics: m,
		timeout: 5 * time.Second,
		wake:    make(chan struct{}, 1),
	}
}

// Publish records p as the value to persist next. It is safe to use as a UI persist hook.
func (f *Flusher) Publish(p Prefs) {
	f.mu.Lock()
	f.pending = &p
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Run writes published preferences until ctx is cancelled, then performs a final flush.
func (f *Flusher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), f.timeout)
			if err := f.Flush(finalCtx); err != nil {
				f.logger.Error("final prefs flush failed", "error", err)
			}
			cancel()
			return
		case <-f.wake:
			flushCtx, cancel := context.WithTimeout(ctx, f.timeout)
			if err := f.Flush(flushCtx); err != nil {
				f.logger.Warn("prefs flush failed", "error", err)
			}
			cancel()
		}
	}
}

// Flush writes the pending value, if any. On failure the value stays pending
// unless a newer one was published meanwhile.
func (f *Flusher) Flush(ctx context.Context) error {
	f.mu.Lock()
	p := f.pending
	f.pending = nil
	f.mu.Unlock()
	if p == nil {
		return nil
	}

	payload, err := json.Marshal(p)
	if err != nil {
		f.count("error")
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := f.repo.SavePrefs(ctx, f.profile, payload); err != nil {
		f.mu.Lock()
		if f.pending == nil {
			f.pending = p
		}
		f.mu.Unlock()
		f.count("error")
		return fmt.Errorf("save prefs: %w", err)
	}
	f.count("ok")
	return nil
}

func (f *Flusher) count(status string) {
	if f.metrics != nil {
		f.metrics.PrefsFlushes.WithLabelValues(status).Inc()
	}
}
