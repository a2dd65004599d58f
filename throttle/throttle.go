package throttle

import (
	"context"
	"instagrow/ledger"
	"time"

	"go.uber.org/zap"
)

// Throttle is a soft, single-writer rate guard over the action ledger. It
// tracks two independent quota families: a combined follow+unfollow quota
// (hour and day windows) and a separate like quota (day window only). When a
// window is at quota it sleeps a fixed cooldown and re-checks, looping until
// the window has drained. There is no cross-process coordination; it only
// prevents sustained breaches within one running session.
type Throttle struct {
	ledger *ledger.Ledger
	cfg    Config
	log    *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// Config sets the window quotas. A quota of 0 (or less) disables that
// window: its actions are never blocked.
type Config struct {
	MaxFollowsPerHour int
	MaxFollowsPerDay  int
	MaxLikesPerDay    int
	Cooldown          time.Duration
}

const DefaultCooldown = 10 * time.Minute

func New(log *zap.Logger, l *ledger.Ledger, cfg Config) *Throttle {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Throttle{
		ledger: l,
		cfg:    cfg,
		log:    log,
		sleep:  sleepCtx,
	}
}

// WaitFollow blocks until both the hour and the day follow+unfollow windows
// are below quota. The windows are evaluated independently and may each
// contribute a wait.
func (t *Throttle) WaitFollow(ctx context.Context) error {
	if err := t.waitWindow(ctx, "follow-hour", time.Hour, t.cfg.MaxFollowsPerHour, t.followUnfollowCount); err != nil {
		return err
	}
	return t.waitWindow(ctx, "follow-day", 24*time.Hour, t.cfg.MaxFollowsPerDay, t.followUnfollowCount)
}

// WaitLike blocks until the like day window is below quota.
func (t *Throttle) WaitLike(ctx context.Context) error {
	return t.waitWindow(ctx, "like-day", 24*time.Hour, t.cfg.MaxLikesPerDay, t.ledger.LikesWithin)
}

func (t *Throttle) waitWindow(ctx context.Context, name string, window time.Duration, quota int, count func(time.Duration) int) error {
	// quota <= 0 means the window is disabled
	if quota <= 0 {
		return nil
	}
	for {
		n := count(window)
		if n < quota {
			return nil
		}
		t.log.Info("quota window full, cooling down",
			zap.String("window", name),
			zap.Int("count", n),
			zap.Int("quota", quota),
			zap.Duration("cooldown", t.cfg.Cooldown))
		if err := t.sleep(ctx, t.cfg.Cooldown); err != nil {
			return err
		}
	}
}

// followUnfollowCount counts follows plus unfollows in the window. Unfollows
// that took no action are excluded: they never touched the remote account
// graph.
func (t *Throttle) followUnfollowCount(window time.Duration) int {
	count := len(t.ledger.RecordsWithin(ledger.CollectionFollowed, window))
	for _, r := range t.ledger.RecordsWithin(ledger.CollectionUnfollowed, window) {
		if !r.NoActionTaken {
			count++
		}
	}
	return count
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
