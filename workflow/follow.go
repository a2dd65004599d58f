package workflow

import (
	"context"
	"fmt"
	"instagrow/executor"
	"instagrow/ledger"
	"time"

	"go.uber.org/zap"
)

type FollowOutcome string

const (
	// FollowOutcomeAlreadyFollowed: a followed record exists, nothing was
	// done remotely. A record with failed=true still counts: an attempt
	// whose success could not be verified is never silently retried.
	FollowOutcomeAlreadyFollowed FollowOutcome = "already-followed"
	// FollowOutcomeRejected: the candidate failed a restriction check.
	FollowOutcomeRejected FollowOutcome = "rejected"
	// FollowOutcomeConfirmed: the follow was executed and verified.
	FollowOutcomeConfirmed FollowOutcome = "confirmed"
	// FollowOutcomeUnconfirmed: the follow was executed but the page state
	// did not verifiably flip. Recorded with failed=true.
	FollowOutcomeUnconfirmed FollowOutcome = "unconfirmed"
)

// Follow runs the follow path for one candidate. It is idempotent over the
// ledger: a username with any existing followed record is a terminal no-op.
// skipPrivate rejects private profiles before any action is taken.
func (w *Workflow) Follow(ctx context.Context, username string, skipPrivate bool) (FollowOutcome, error) {
	if _, ok := w.ledger.Get(username, ledger.CollectionFollowed); ok {
		w.log.Debug("already followed, skipping", zap.String("username", username))
		return FollowOutcomeAlreadyFollowed, nil
	}
	if err := w.navigate(ctx, username); err != nil {
		return "", err
	}
	attrs, err := w.profileAttributes(ctx, username)
	if err != nil {
		return "", err
	}
	if reason, ok := w.checkRestrictions(attrs, skipPrivate); !ok {
		w.log.Info("candidate rejected",
			zap.String("username", username),
			zap.String("reason", reason))
		return FollowOutcomeRejected, nil
	}

	if err := w.withRetries(ctx, "follow "+username, func(ctx context.Context) error {
		clicked, err := w.exec.ClickFollow(ctx)
		if err != nil {
			return err
		}
		if !clicked {
			w.log.Warn("follow button not found", zap.String("username", username))
		}
		return nil
	}); err != nil {
		return "", err
	}

	outcome := FollowOutcomeConfirmed
	var followErr error
	following, err := w.exec.IsFollowing(ctx)
	if err != nil || !following {
		if blocked, berr := w.exec.DetectBlockedBanner(ctx); berr == nil && blocked {
			return "", w.handleBlocked(ctx, "follow "+username)
		}
		// The click went out but success could not be verified. Persist the
		// attempt with failed=true so this candidate is never retried, and
		// surface the problem to the caller.
		w.ledger.Upsert(ledger.FollowRecord{Username: username, Time: time.Now(), Failed: true}, ledger.CollectionFollowed)
		outcome = FollowOutcomeUnconfirmed
		followErr = &VerificationError{Op: "follow", Username: username}
		if err != nil {
			followErr = fmt.Errorf("%w: %v", followErr, err)
		}
	} else {
		w.ledger.Upsert(ledger.FollowRecord{Username: username, Time: time.Now()}, ledger.CollectionFollowed)
		w.log.Info("followed", zap.String("username", username))
	}

	if err := w.postAction(ctx); err != nil {
		return outcome, err
	}
	return outcome, followErr
}

// checkRestrictions evaluates the configured profile restrictions. It
// returns the human-readable reason for the first failing check.
func (w *Workflow) checkRestrictions(attrs *executor.ProfileAttributes, skipPrivate bool) (string, bool) {
	if skipPrivate && attrs.IsPrivate {
		return "profile is private", false
	}
	if w.opts.MinFollowers > 0 && attrs.FollowerCount < w.opts.MinFollowers {
		return fmt.Sprintf("follower count %d below minimum %d", attrs.FollowerCount, w.opts.MinFollowers), false
	}
	if w.opts.MaxFollowers > 0 && attrs.FollowerCount > w.opts.MaxFollowers {
		return fmt.Sprintf("follower count %d above maximum %d", attrs.FollowerCount, w.opts.MaxFollowers), false
	}
	if w.opts.MinFollowing > 0 && attrs.FollowingCount < w.opts.MinFollowing {
		return fmt.Sprintf("following count %d below minimum %d", attrs.FollowingCount, w.opts.MinFollowing), false
	}
	if w.opts.MaxFollowing > 0 && attrs.FollowingCount > w.opts.MaxFollowing {
		return fmt.Sprintf("following count %d above maximum %d", attrs.FollowingCount, w.opts.MaxFollowing), false
	}
	if w.opts.RatioMin > 0 || w.opts.RatioMax > 0 {
		ratio := attrs.Ratio()
		if w.opts.RatioMin > 0 && ratio < w.opts.RatioMin {
			return fmt.Sprintf("follower ratio %.2f below minimum %.2f", ratio, w.opts.RatioMin), false
		}
		if w.opts.RatioMax > 0 && ratio > w.opts.RatioMax {
			return fmt.Sprintf("follower ratio %.2f above maximum %.2f", ratio, w.opts.RatioMax), false
		}
	}
	if w.opts.ShouldFollow != nil && !w.opts.ShouldFollow(attrs) {
		return "rejected by custom predicate", false
	}
	return "", true
}
