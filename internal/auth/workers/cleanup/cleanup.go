// Package cleanup purges blacklist entries whose tokens have expired.
// Sessions are never deleted and are not touched here.
package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const defaultInterval = 10 * time.Minute

// Blacklist removes entries whose mirrored token expiry is before now.
type Blacklist interface {
	Purge(ctx context.Context, now time.Time) (int, error)
}

type Metrics interface {
	AddBlacklistPurged(count int)
}

// CleanupService periodically purges the token blacklist.
type CleanupService struct {
	blacklist Blacklist
	metrics   Metrics
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the purge interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCleanupMetrics(m Metrics) CleanupOption {
	return func(s *CleanupService) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) CleanupOption {
	return func(s *CleanupService) {
		if now != nil {
			s.now = now
		}
	}
}

func New(blacklist Blacklist, opts ...CleanupOption) (*CleanupService, error) {
	if blacklist == nil {
		return nil, errors.New("blacklist is required")
	}
	svc := &CleanupService{
		blacklist: blacklist,
		interval:  defaultInterval,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start purges every interval until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "blacklist purge failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single purge and reports how many entries it removed.
func (s *CleanupService) RunOnce(ctx context.Context) (int, error) {
	purged, err := s.blacklist.Purge(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.AddBlacklistPurged(purged)
	}
	if purged > 0 {
		s.logger.InfoContext(ctx, "blacklist purged", "count", purged)
	}
	return purged, nil
}
