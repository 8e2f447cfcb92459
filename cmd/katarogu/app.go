// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/katarogu/katarogu/internal/actions"
	"github.com/katarogu/katarogu/internal/auth"
	"github.com/katarogu/katarogu/internal/auth/postgres"
	authredis "github.com/katarogu/katarogu/internal/auth/redis"
	"github.com/katarogu/katarogu/internal/config"
	"github.com/katarogu/katarogu/internal/mail"
	"github.com/katarogu/katarogu/internal/store"
)

// app is the wired service graph shared by serve and sweep.
type app struct {
	sessions     *auth.SessionManager
	verification *auth.VerificationService
	actions      *actions.Service
	closers      []func() error
}

// newApp wires repositories and services over db.
func newApp(ctx context.Context, cfg *config.Config, db store.DB, logger *slog.Logger) (*app, error) {
	a := &app{}

	users := postgres.NewUserRepository(db)
	sessions, err := auth.NewSessionManager(postgres.NewSessionRepository(db), users, cfg.SessionConfig(),
		auth.WithSessionLogger(logger))
	if err != nil {
		return nil, err
	}
	a.sessions = sessions

	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Argon2Params())
	if err != nil {
		return nil, err
	}

	codes, err := a.codeRepository(ctx, cfg, db)
	if err != nil {
		return nil, err
	}
	sender, err := codeSender(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.verification, err = auth.NewVerificationService(codes, sender, cfg.Verification.CodeTTL,
		auth.WithVerificationLogger(logger))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.actions, err = actions.NewService(users, hasher, sessions, a.verification, cfg.ActionsConfig(),
		actions.WithLogger(logger))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) codeRepository(ctx context.Context, cfg *config.Config, db store.DB) (auth.VerificationCodeRepository, error) {
	switch cfg.Verification.Store {
	case config.StoreRedis:
		client, err := authredis.NewClient(ctx, cfg.RedisConfig())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return authredis.NewVerificationCodeRepository(client), nil
	case config.StorePostgres:
		return postgres.NewVerificationCodeRepository(db), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("store", cfg.Verification.Store).Errorf("unknown verification store")
	}
}

func codeSender(cfg *config.Config, logger *slog.Logger) (auth.CodeSender, error) {
	switch cfg.Mail.Driver {
	case config.MailSMTP:
		return mail.NewSMTPSender(cfg.SMTPConfig(), cfg.Verification.CodeTTL)
	case config.MailLog:
		return mail.NewLogSender(logger), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Mail.Driver).Errorf("unknown mail driver")
	}
}

// newSweeper returns a sweeper over sessions and codes.
func (a *app) newSweeper(interval time.Duration, logger *slog.Logger) (*auth.Sweeper, error) {
	return auth.NewSweeper(interval, logger,
		auth.SweepTarget{Name: "sessions", Deleter: a.sessions},
		auth.SweepTarget{Name: "verification_codes", Deleter: a.verification},
	)
}

// Close releases clients opened by newApp.
func (a *app) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}
	a.closers = nil
	return errors.Join(errs...)
}
