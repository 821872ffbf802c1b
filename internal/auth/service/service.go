// Package service implements the session manager: login, logout, activity
// tracking and administrative revocation on top of the token codec, the
// blacklist and the session store.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"salesgate/internal/auth/metrics"
	"salesgate/internal/auth/models"
	"salesgate/internal/auth/token"
	"salesgate/internal/platform/tracer"
	id "salesgate/pkg/domain"
	"salesgate/pkg/platform/audit"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Authenticator checks a tenant-scoped code and secret.
// It returns CodeInvalidCredentials for every rejection and CodeUnavailable
// when a store could not be read.
type Authenticator interface {
	Authenticate(ctx context.Context, tenantScope, code, secret string) (*models.User, error)
}

type TokenCodec interface {
	Issue(ctx context.Context, p token.IssueParams) (string, *token.Claims, error)
	Verify(ctx context.Context, raw string) (*token.Claims, error)
}

// Blacklist reports through its bool whether the entry was newly inserted.
type Blacklist interface {
	Revoke(ctx context.Context, raw string, userID id.UserID, expiresAt time.Time) (bool, error)
	RevokeHash(ctx context.Context, tokenHash string, userID id.UserID, expiresAt time.Time) (bool, error)
}

// SessionStore persists sessions.
// Error Contract: Find methods and RevokeIfActive return sentinel.ErrNotFound
// when the session is missing; Create returns session.ErrActiveSession on
// conflict; RevokeIfActive returns session.ErrSessionRevoked with the stored
// session when it was already revoked.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	FindActive(ctx context.Context, userID id.UserID, scope string) (*models.Session, error)
	RevokeIfActive(ctx context.Context, sessionID id.SessionID, at time.Time, reason models.RevokeReason) (*models.Session, error)
	Touch(ctx context.Context, sessionID id.SessionID, at time.Time) error
	ListActiveByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error)
}

type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	defaultTouchTimeout      = 2 * time.Second
	defaultMaxPendingTouches = 256
)

type Service struct {
	authenticator  Authenticator
	codec          TokenCodec
	blacklist      Blacklist
	sessions       SessionStore
	users          UserStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         tracer.Tracer

	touchTimeout time.Duration
	touchSlots   chan struct{}
	touches      sync.WaitGroup
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithTouchTimeout bounds each detached last-seen update.
func WithTouchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.touchTimeout = d
		}
	}
}

// WithMaxPendingTouches caps concurrent last-seen updates; extra touches are dropped.
func WithMaxPendingTouches(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.touchSlots = make(chan struct{}, n)
		}
	}
}

func New(authenticator Authenticator, codec TokenCodec, blacklist Blacklist, sessions SessionStore, users UserStore, opts ...Option) *Service {
	svc := &Service{
		authenticator: authenticator,
		codec:         codec,
		blacklist:     blacklist,
		sessions:      sessions,
		users:         users,
		touchTimeout:  defaultTouchTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.tracer == nil {
		svc.tracer = tracer.NewNoop()
	}
	if svc.touchSlots == nil {
		svc.touchSlots = make(chan struct{}, defaultMaxPendingTouches)
	}
	return svc
}

// Wait blocks until in-flight touches finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.touches.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
