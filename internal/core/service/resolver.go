package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
)

const (
	defaultResolveTimeout  = 10 * time.Second
	defaultResolveAttempts = 3
	defaultRetryInterval   = 200 * time.Millisecond
)

// Resolver turns a stored token into a verified user.
//
// Concurrent resolutions of the same token share one backend request. The
// whole resolution, retries included, is bounded by the resolver timeout;
// transient failures are retried with exponential backoff up to a fixed
// number of attempts.
type Resolver struct {
	api           ports.IdentityAPI
	timeout       time.Duration
	maxAttempts   uint
	retryInterval time.Duration
	group         singleflight.Group
	log           zerolog.Logger
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithResolveTimeout bounds a resolution. Non-positive values keep the default.
func WithResolveTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxAttempts caps identity requests per resolution. Zero keeps the default.
func WithMaxAttempts(n uint) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithRetryInterval sets the first backoff interval.
func WithRetryInterval(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.retryInterval = d
		}
	}
}

// NewResolver returns a Resolver backed by api.
func NewResolver(api ports.IdentityAPI, log zerolog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		api:           api,
		timeout:       defaultResolveTimeout,
		maxAttempts:   defaultResolveAttempts,
		retryInterval: defaultRetryInterval,
		log:           log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve validates token. Errors are classified with the domain sentinels:
// ErrSessionExpired for a rejected token, ErrBackendUnavailable for network
// failures and timeouts, ErrMalformedResponse for unusable bodies.
func (r *Resolver) Resolve(ctx context.Context, token string) (domain.User, error) {
	ch := r.group.DoChan(token, func() (any, error) {
		// the shared call must not die with whichever caller started it
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.fetch(callCtx, token)
	})

	select {
	case <-ctx.Done():
		return domain.User{}, fmt.Errorf("resolve session: %w: %w", domain.ErrBackendUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.User{}, res.Err
		}
		return res.Val.(domain.User), nil
	}
}

func (r *Resolver) fetch(ctx context.Context, token string) (domain.User, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retryInterval
	b.MaxInterval = r.timeout / 4

	op := func() (domain.User, error) {
		user, err := r.api.Me(ctx, token)
		if err != nil {
			if errors.Is(err, domain.ErrBackendUnavailable) {
				return domain.User{}, err
			}
			return domain.User{}, backoff.Permanent(err)
		}
		if user == nil || user.ID == "" {
			return domain.User{}, backoff.Permanent(fmt.Errorf("identity check: %w", domain.ErrMalformedResponse))
		}
		return *user, nil
	}

	user, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.maxAttempts),
		backoff.WithMaxElapsedTime(r.timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.log.Warn().Err(err).Dur("retry_in", next).Msg("identity check failed, retrying")
		}),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrBackendUnavailable) {
			return domain.User{}, fmt.Errorf("identity check timed out: %w: %w", domain.ErrBackendUnavailable, err)
		}
		return domain.User{}, err
	}

	user.Role = domain.ParseRole(string(user.Role))
	return user, nil
}
