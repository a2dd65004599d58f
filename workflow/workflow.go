// Package workflow implements the idempotent follow, unfollow and like
// operations against the remote platform, including restriction checks,
// bounded retries and the blocked-banner abort path.
package workflow

import (
	"context"
	"instagrow/executor"
	"instagrow/ledger"
	"instagrow/throttle"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

type Workflow struct {
	exec     executor.Executor
	ledger   *ledger.Ledger
	throttle *throttle.Throttle
	log      *zap.Logger
	opts     Options
	observer executor.Observer
	sleep    func(ctx context.Context, d time.Duration) error
	rnd      *rand.Rand

	// cache holds the profile attributes of the identifier the page is
	// currently on. It is invalidated explicitly on navigation away.
	cache cachedProfile
}

type cachedProfile struct {
	username string
	attrs    *executor.ProfileAttributes
}

type Options struct {
	// Restrictions evaluated against a candidate's profile before following.
	MinFollowers int
	MaxFollowers int
	MinFollowing int
	MaxFollowing int
	RatioMin     float64
	RatioMax     float64
	// ShouldFollow is an optional extra predicate over the profile
	// attributes; nil means always-accept.
	ShouldFollow func(attrs *executor.ProfileAttributes) bool
	// ShouldLike decides per piece of media; nil means always-accept.
	ShouldLike executor.MediaPredicate

	RetryAttempts   int
	RetryBackoff    time.Duration
	PostActionSleep time.Duration
	BlockedCooldown time.Duration

	// Observer receives like/sleep/note events synchronously; nil means
	// no observation.
	Observer executor.Observer
}

const (
	DefaultRetryAttempts   = 3
	DefaultRetryBackoff    = 10 * time.Second
	DefaultPostActionSleep = 20 * time.Second
	DefaultBlockedCooldown = 3 * time.Hour
)

func New(log *zap.Logger, exec executor.Executor, l *ledger.Ledger, th *throttle.Throttle, opts Options) *Workflow {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = DefaultRetryAttempts
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.PostActionSleep <= 0 {
		opts.PostActionSleep = DefaultPostActionSleep
	}
	if opts.BlockedCooldown <= 0 {
		opts.BlockedCooldown = DefaultBlockedCooldown
	}
	observer := opts.Observer
	if observer == nil {
		observer = executor.NopObserver{}
	}
	return &Workflow{
		exec:     exec,
		ledger:   l,
		throttle: th,
		log:      log,
		opts:     opts,
		observer: observer,
		sleep:    sleepCtx,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// navigate moves the page to the given identifier. Moving away from the
// previously navigated identifier drops the cached profile attributes.
func (w *Workflow) navigate(ctx context.Context, identifier string) error {
	if w.cache.username != identifier {
		w.cache = cachedProfile{}
	}
	return w.withRetries(ctx, "navigate to "+identifier, func(ctx context.Context) error {
		result, err := w.exec.NavigateTo(ctx, identifier)
		if err != nil {
			return err
		}
		if !result.Found {
			return executor.NewNotFoundError(identifier)
		}
		return nil
	})
}

func (w *Workflow) profileAttributes(ctx context.Context, username string) (*executor.ProfileAttributes, error) {
	if w.cache.username == username && w.cache.attrs != nil {
		return w.cache.attrs, nil
	}
	var attrs *executor.ProfileAttributes
	err := w.withRetries(ctx, "fetch profile of "+username, func(ctx context.Context) error {
		var err error
		attrs, err = w.exec.FetchProfileAttributes(ctx, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.cache = cachedProfile{username: username, attrs: attrs}
	return attrs, nil
}

// postAction is the fixed cooldown plus quota check that follows every
// executed graph mutation.
func (w *Workflow) postAction(ctx context.Context) error {
	w.observer.OnSleep(w.opts.PostActionSleep)
	if err := w.sleep(ctx, w.opts.PostActionSleep); err != nil {
		return err
	}
	return w.throttle.WaitFollow(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
