package runner

import (
	"context"
	"errors"
	"instagrow/pager"
	"instagrow/report"
	"instagrow/workflow"
	"time"

	"go.uber.org/zap"
)

// UsernameSource yields candidate usernames one at a time: a materialized
// list or a live paginated listing behind the same pull interface.
type UsernameSource interface {
	Next(ctx context.Context) (string, bool, error)
}

type sliceSource struct {
	usernames []string
	i         int
}

func SliceSource(usernames []string) UsernameSource {
	return &sliceSource{usernames: usernames}
}

func (s *sliceSource) Next(ctx context.Context) (string, bool, error) {
	if s.i >= len(s.usernames) {
		return "", false, nil
	}
	username := s.usernames[s.i]
	s.i++
	return username, true, nil
}

type pagedSource struct {
	source PageSource
	buf    []string
	done   bool
}

// PagedSource adapts a page source into a one-at-a-time username source.
func PagedSource(source PageSource) UsernameSource {
	return &pagedSource{source: source}
}

func (s *pagedSource) Next(ctx context.Context) (string, bool, error) {
	for len(s.buf) == 0 {
		if s.done {
			return "", false, nil
		}
		ids, err := s.source.Next(ctx)
		if errors.Is(err, pager.ErrExhausted) {
			s.done = true
			return "", false, nil
		} else if err != nil {
			return "", false, err
		}
		s.buf = ids
	}
	username := s.buf[0]
	s.buf = s.buf[1:]
	return username, true, nil
}

// BulkUnfollow unfollows candidates from the source until limit targets have
// actually been unfollowed (no-ops are counted as processed but not as
// unfollowed). Every UnfollowBreakEvery confirmed unfollows it takes an
// extended randomized break. Returns the confirmed unfollow count.
func (r *Runner) BulkUnfollow(ctx context.Context, source UsernameSource, limit int, predicate func(username string) bool) (int, error) {
	processed := 0
	unfollowed := 0
	for unfollowed < limit {
		username, ok, err := source.Next(ctx)
		if err != nil {
			return unfollowed, err
		}
		if !ok {
			break
		}
		processed++
		if predicate != nil && !predicate(username) {
			continue
		}
		if err := r.throttle.WaitFollow(ctx); err != nil {
			return unfollowed, err
		}
		outcome, err := r.wf.Unfollow(ctx, username)
		if err != nil {
			if ferr := r.isolate(ctx, username, "unfollow", err); ferr != nil {
				return unfollowed, ferr
			}
			continue
		}
		r.report.Add(report.NewUnfollowItem(username, outcome == workflow.UnfollowOutcomeNotFollowing))
		if outcome != workflow.UnfollowOutcomeConfirmed {
			continue
		}
		unfollowed++
		if unfollowed < limit && unfollowed%r.opts.UnfollowBreakEvery == 0 {
			pause := r.randomBreak()
			r.log.Info("taking extended unfollow break",
				zap.Int("unfollowed", unfollowed),
				zap.Duration("pause", pause))
			if err := r.sleep(ctx, pause); err != nil {
				return unfollowed, err
			}
		}
	}
	r.log.Info("bulk unfollow finished",
		zap.Int("processed", processed),
		zap.Int("unfollowed", unfollowed))
	return unfollowed, nil
}

// BulkFollow follows the given usernames in order until limit candidates
// have been confirmed, isolating per-user failures. Returns the confirmed
// follow count.
func (r *Runner) BulkFollow(ctx context.Context, usernames []string, skipPrivate bool, limit int) (int, error) {
	followed := 0
	for _, username := range usernames {
		if limit > 0 && followed >= limit {
			break
		}
		if r.isExcluded(username) {
			r.report.Add(report.NewSkipItem(username, "excluded"))
			continue
		}
		if err := r.throttle.WaitFollow(ctx); err != nil {
			return followed, err
		}
		outcome, err := r.wf.Follow(ctx, username, skipPrivate)
		if err != nil {
			if ferr := r.isolate(ctx, username, "follow", err); ferr != nil {
				return followed, ferr
			}
			continue
		}
		r.report.Add(report.NewFollowItem(username, string(outcome)))
		if outcome == workflow.FollowOutcomeConfirmed {
			followed++
			r.followedThisRun++
		}
	}
	return followed, nil
}

func (r *Runner) randomBreak() time.Duration {
	spread := r.opts.UnfollowBreakMax - r.opts.UnfollowBreakMin
	if spread <= 0 {
		return r.opts.UnfollowBreakMin
	}
	return r.opts.UnfollowBreakMin + time.Duration(r.rnd.Int63n(int64(spread)))
}
