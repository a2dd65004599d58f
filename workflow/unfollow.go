package workflow

import (
	"context"
	"fmt"
	"instagrow/executor"
	"instagrow/ledger"
	"time"

	"go.uber.org/zap"
)

type UnfollowOutcome string

const (
	// UnfollowOutcomeNotFollowing: the desired end-state already held, no
	// remote mutation. Covers "already unfollowed", "follow button not
	// found" and "account no longer exists" uniformly.
	UnfollowOutcomeNotFollowing UnfollowOutcome = "not-following"
	// UnfollowOutcomeConfirmed: the unfollow was executed and verified.
	UnfollowOutcomeConfirmed UnfollowOutcome = "confirmed"
)

// Unfollow runs the unfollow path for one target. Unlike the follow path, an
// unconfirmed unfollow is not persisted: the hard error surfaces and a later
// pass retries the target.
func (w *Workflow) Unfollow(ctx context.Context, username string) (UnfollowOutcome, error) {
	if err := w.navigate(ctx, username); err != nil {
		if executor.IsNotFound(err) {
			// Target is gone; nothing to undo.
			w.ledger.Upsert(ledger.FollowRecord{Username: username, Time: time.Now(), NoActionTaken: true}, ledger.CollectionUnfollowed)
			w.log.Info("unfollow target not found, recording no-op", zap.String("username", username))
			return UnfollowOutcomeNotFollowing, nil
		}
		return "", err
	}

	following, err := w.exec.IsFollowing(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read follow state for %s: %w", username, err)
	}
	if !following {
		w.ledger.Upsert(ledger.FollowRecord{Username: username, Time: time.Now(), NoActionTaken: true}, ledger.CollectionUnfollowed)
		w.log.Info("not currently following, recording no-op", zap.String("username", username))
		return UnfollowOutcomeNotFollowing, nil
	}

	if err := w.withRetries(ctx, "unfollow "+username, func(ctx context.Context) error {
		confirmed, err := w.exec.ClickUnfollow(ctx)
		if err != nil {
			return err
		}
		if !confirmed {
			return executor.NewTransientError("unfollow "+username, fmt.Errorf("unfollow confirmation dialog did not resolve"))
		}
		return nil
	}); err != nil {
		return "", err
	}

	still, err := w.exec.IsFollowing(ctx)
	if err != nil || still {
		if blocked, berr := w.exec.DetectBlockedBanner(ctx); berr == nil && blocked {
			return "", w.handleBlocked(ctx, "unfollow "+username)
		}
		// No ledger write: the unfollow stays pending for a later pass.
		verr := &VerificationError{Op: "unfollow", Username: username}
		if err != nil {
			return "", fmt.Errorf("%w: %v", verr, err)
		}
		return "", verr
	}

	w.ledger.Upsert(ledger.FollowRecord{Username: username, Time: time.Now()}, ledger.CollectionUnfollowed)
	w.log.Info("unfollowed", zap.String("username", username))
	if err := w.postAction(ctx); err != nil {
		return UnfollowOutcomeConfirmed, err
	}
	return UnfollowOutcomeConfirmed, nil
}
