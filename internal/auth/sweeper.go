// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
)

// DefaultSweepInterval is how often expired rows are collected.
const DefaultSweepInterval = time.Hour

// ExpiredDeleter removes expired records and reports how many were removed.
// SessionManager and VerificationService both satisfy it.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SweepTarget names an ExpiredDeleter for logging.
type SweepTarget struct {
	Name    string
	Deleter ExpiredDeleter
}

// Sweeper periodically deletes expired sessions and verification codes.
// Expired rows are also discarded lazily on read; the sweeper bounds how
// long unread ones linger.
type Sweeper struct {
	targets  []SweepTarget
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a Sweeper. The interval must be positive.
func NewSweeper(interval time.Duration, logger *slog.Logger, targets ...SweepTarget) (*Sweeper, error) {
	if interval <= 0 {
		return nil, oops.Code("SWEEPER_INVALID_CONFIG").With("interval", interval).Errorf("sweep interval must be positive")
	}
	if len(targets) == 0 {
		return nil, oops.Code("SWEEPER_INVALID_CONFIG").Errorf("at least one sweep target is required")
	}
	for _, target := range targets {
		if target.Deleter == nil {
			return nil, oops.Code("SWEEPER_INVALID_CONFIG").With("target", target.Name).Errorf("sweep target has no deleter")
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{targets: targets, interval: interval, logger: logger}, nil
}

// RunOnce executes a single sweep. Every target is attempted even if
// earlier ones fail; errors are combined.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	var errs []error
	for _, target := range s.targets {
		n, err := target.Deleter.DeleteExpired(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "sweep failed", "target", target.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		if n > 0 {
			s.logger.InfoContext(ctx, "swept expired records", "target", target.Name, "count", n)
		}
	}
	return errors.Join(errs...)
}

// Start begins periodic sweeping until ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the sweeper and waits for the running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Errors are already logged per target.
			_ = s.RunOnce(ctx)
		}
	}
}
