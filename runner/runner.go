// Package runner drives the follow/unfollow/like workflows over many
// candidates: it pulls candidate pages, applies the quota throttle, isolates
// per-candidate failures and enforces the per-run caps. Only the platform's
// blocked signal aborts a whole batch.
package runner

import (
	"context"
	"errors"
	"instagrow/executor"
	"instagrow/ledger"
	"instagrow/pager"
	"instagrow/report"
	"instagrow/utils/slicesx"
	"instagrow/workflow"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// ActionWorkflow is the per-candidate operation surface the runner drives.
type ActionWorkflow interface {
	Follow(ctx context.Context, username string, skipPrivate bool) (workflow.FollowOutcome, error)
	Unfollow(ctx context.Context, username string) (workflow.UnfollowOutcome, error)
	LikeUserMedia(ctx context.Context, username string, minCount int, maxCount int) (int, error)
}

// Waiter blocks until the relevant quota windows have room.
type Waiter interface {
	WaitFollow(ctx context.Context) error
	WaitLike(ctx context.Context) error
}

// PageSource yields pages of candidate identifiers until pager.ErrExhausted.
type PageSource interface {
	Next(ctx context.Context) ([]string, error)
}

type Runner struct {
	log      *zap.Logger
	exec     executor.Executor
	wf       ActionWorkflow
	throttle Waiter
	ledger   *ledger.Ledger
	report   *report.Report
	opts     Options
	sleep    func(ctx context.Context, d time.Duration) error
	rnd      *rand.Rand

	followedThisRun int
}

type Options struct {
	// Username is the account the session is logged in as; it is never a
	// candidate and anchors the own-listing routines.
	Username     string
	ExcludeUsers []string
	SkipPrivate  bool
	// RunFollowCap stops a run early after this many confirmed follows.
	// Zero means unbounded.
	RunFollowCap int
	PageSize     int
	// CandidateBackoff is the short pause after an isolated per-candidate
	// failure before moving on.
	CandidateBackoff time.Duration
	// Every UnfollowBreakEvery confirmed unfollows, bulk unfollow takes an
	// extended randomized break in [UnfollowBreakMin, UnfollowBreakMax].
	UnfollowBreakEvery int
	UnfollowBreakMin   time.Duration
	UnfollowBreakMax   time.Duration
	// DisableFollow makes candidate processing skip the follow action and
	// only chain likes.
	DisableFollow bool
}

const (
	DefaultCandidateBackoff   = 15 * time.Second
	DefaultUnfollowBreakEvery = 10
	DefaultUnfollowBreakMin   = 5 * time.Minute
	DefaultUnfollowBreakMax   = 15 * time.Minute
)

type LikeOptions struct {
	Enabled  bool
	MinCount int
	MaxCount int
}

func New(log *zap.Logger, exec executor.Executor, wf ActionWorkflow, th Waiter, l *ledger.Ledger, rep *report.Report, opts Options) *Runner {
	if opts.CandidateBackoff <= 0 {
		opts.CandidateBackoff = DefaultCandidateBackoff
	}
	if opts.UnfollowBreakEvery <= 0 {
		opts.UnfollowBreakEvery = DefaultUnfollowBreakEvery
	}
	if opts.UnfollowBreakMin <= 0 {
		opts.UnfollowBreakMin = DefaultUnfollowBreakMin
	}
	if opts.UnfollowBreakMax < opts.UnfollowBreakMin {
		opts.UnfollowBreakMax = DefaultUnfollowBreakMax
		if opts.UnfollowBreakMax < opts.UnfollowBreakMin {
			opts.UnfollowBreakMax = opts.UnfollowBreakMin
		}
	}
	return &Runner{
		log:      log,
		exec:     exec,
		wf:       wf,
		throttle: th,
		ledger:   l,
		report:   rep,
		opts:     opts,
		sleep:    sleepCtx,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Report returns the audit trail of this runner's actions.
func (r *Runner) Report() *report.Report {
	return r.report
}

// ProcessCandidateSource drains the source page by page and runs the follow
// workflow (and optionally the like workflow) for each candidate. Returns
// the number of confirmed follows. Per-candidate failures are logged and
// skipped after a short backoff; a blocked error aborts the whole batch.
func (r *Runner) ProcessCandidateSource(ctx context.Context, source PageSource, sourceCap int, likeOpts *LikeOptions) (int, error) {
	followed := 0
	for {
		ids, err := source.Next(ctx)
		if errors.Is(err, pager.ErrExhausted) {
			return followed, nil
		} else if err != nil {
			return followed, err
		}
		for _, username := range ids {
			if sourceCap > 0 && followed >= sourceCap {
				return followed, nil
			}
			if r.opts.RunFollowCap > 0 && r.followedThisRun >= r.opts.RunFollowCap {
				r.log.Info("run follow cap reached, stopping early",
					zap.Int("cap", r.opts.RunFollowCap))
				return followed, nil
			}
			if r.isExcluded(username) {
				r.report.Add(report.NewSkipItem(username, "excluded"))
				continue
			}
			confirmed, err := r.processCandidate(ctx, username, likeOpts)
			if err != nil {
				return followed, err
			}
			if confirmed {
				followed++
			}
		}
	}
}

// processCandidate handles one candidate with per-candidate failure
// isolation. The returned error is always fatal for the batch.
func (r *Runner) processCandidate(ctx context.Context, username string, likeOpts *LikeOptions) (bool, error) {
	confirmed := false
	if !r.opts.DisableFollow {
		if err := r.throttle.WaitFollow(ctx); err != nil {
			return false, err
		}
		outcome, err := r.wf.Follow(ctx, username, r.opts.SkipPrivate)
		if err != nil {
			return false, r.isolate(ctx, username, "follow", err)
		}
		r.report.Add(report.NewFollowItem(username, string(outcome)))
		confirmed = outcome == workflow.FollowOutcomeConfirmed
		if confirmed {
			r.followedThisRun++
		}
	}
	if (confirmed || r.opts.DisableFollow) && likeOpts != nil && likeOpts.Enabled {
		if err := r.throttle.WaitLike(ctx); err != nil {
			return confirmed, err
		}
		if _, err := r.wf.LikeUserMedia(ctx, username, likeOpts.MinCount, likeOpts.MaxCount); err != nil {
			return confirmed, r.isolate(ctx, username, "like", err)
		}
	}
	return confirmed, nil
}

// isolate logs a per-candidate failure and backs off briefly; it returns a
// non-nil error only for conditions that must abort the batch.
func (r *Runner) isolate(ctx context.Context, username string, op string, err error) error {
	if executor.IsBlocked(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	r.log.Warn("candidate failed, continuing",
		zap.String("username", username),
		zap.String("op", op),
		zap.Error(err))
	r.report.Add(report.NewErrorItem(username, op, err))
	return r.sleep(ctx, r.opts.CandidateBackoff)
}

func (r *Runner) isExcluded(username string) bool {
	return username == r.opts.Username || slicesx.Contains(r.opts.ExcludeUsers, username)
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
