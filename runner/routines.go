package runner

import (
	"context"
	"fmt"
	"instagrow/executor"
	"instagrow/ledger"
	"instagrow/pager"
	"instagrow/utils/slicesx"
	"time"

	"go.uber.org/zap"
)

// FollowFollowersOf follows up to sourceCap followers of the source account,
// optionally chaining likes after each confirmed follow.
func (r *Runner) FollowFollowersOf(ctx context.Context, sourceUsername string, sourceCap int, likeOpts *LikeOptions) (int, error) {
	p := pager.New(r.exec, executor.Listing{Kind: executor.ListingKindFollowers, Username: sourceUsername}, "", r.opts.PageSize)
	r.log.Info("processing followers of source account",
		zap.String("source", sourceUsername),
		zap.Int("cap", sourceCap))
	return r.ProcessCandidateSource(ctx, p, sourceCap, likeOpts)
}

// FollowLikersOf follows up to sourceCap accounts that liked the given media.
func (r *Runner) FollowLikersOf(ctx context.Context, mediaRef string, sourceCap int, likeOpts *LikeOptions) (int, error) {
	p := pager.New(r.exec, executor.Listing{Kind: executor.ListingKindLikers, MediaRef: mediaRef}, "", r.opts.PageSize)
	return r.ProcessCandidateSource(ctx, p, sourceCap, likeOpts)
}

// UnfollowNonMutual unfollows up to limit accounts we follow that do not
// follow us back. Excluded users are never touched.
func (r *Runner) UnfollowNonMutual(ctx context.Context, limit int) (int, error) {
	following, err := r.ownListing(ctx, executor.ListingKindFollowing)
	if err != nil {
		return 0, err
	}
	followers, err := r.ownListing(ctx, executor.ListingKindFollowers)
	if err != nil {
		return 0, err
	}
	followerSet := make(map[string]struct{}, len(followers))
	for _, u := range followers {
		followerSet[u] = struct{}{}
	}
	candidates := slicesx.Filter(following, func(u string, _ int) bool {
		_, mutual := followerSet[u]
		return !mutual && !r.isExcluded(u)
	})
	r.log.Info("unfollowing non-mutual accounts",
		zap.Int("following", len(following)),
		zap.Int("candidates", len(candidates)),
		zap.Int("limit", limit))
	return r.BulkUnfollow(ctx, SliceSource(candidates), limit, nil)
}

// UnfollowUnknown unfollows up to limit accounts we follow that the ledger
// never recorded: follows made outside this tool.
func (r *Runner) UnfollowUnknown(ctx context.Context, limit int) (int, error) {
	candidates, err := r.manuallyFollowed(ctx)
	if err != nil {
		return 0, err
	}
	r.log.Info("unfollowing accounts not followed by this tool",
		zap.Int("candidates", len(candidates)),
		zap.Int("limit", limit))
	return r.BulkUnfollow(ctx, SliceSource(candidates), limit, nil)
}

// UnfollowOlderThan unfollows up to limit accounts the tool followed more
// than the given number of days ago and that we still follow.
func (r *Runner) UnfollowOlderThan(ctx context.Context, days int, limit int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days must be positive, got %d", days)
	}
	following, err := r.ownListing(ctx, executor.ListingKindFollowing)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	candidates := slicesx.Filter(following, func(u string, _ int) bool {
		if r.isExcluded(u) {
			return false
		}
		rec, ok := r.ledger.Get(u, ledger.CollectionFollowed)
		return ok && rec.Time.Before(cutoff)
	})
	r.log.Info("unfollowing old followed accounts",
		zap.Int("days", days),
		zap.Int("candidates", len(candidates)),
		zap.Int("limit", limit))
	return r.BulkUnfollow(ctx, SliceSource(candidates), limit, nil)
}

// ListManuallyFollowed returns the accounts we follow that have no followed
// record in the ledger.
func (r *Runner) ListManuallyFollowed(ctx context.Context) ([]string, error) {
	return r.manuallyFollowed(ctx)
}

func (r *Runner) manuallyFollowed(ctx context.Context) ([]string, error) {
	following, err := r.ownListing(ctx, executor.ListingKindFollowing)
	if err != nil {
		return nil, err
	}
	return slicesx.Filter(following, func(u string, _ int) bool {
		if r.isExcluded(u) {
			return false
		}
		_, ok := r.ledger.Get(u, ledger.CollectionFollowed)
		return !ok
	}), nil
}

func (r *Runner) ownListing(ctx context.Context, kind executor.ListingKind) ([]string, error) {
	if r.opts.Username == "" {
		return nil, fmt.Errorf("own username is not configured")
	}
	p := pager.New(r.exec, executor.Listing{Kind: kind, Username: r.opts.Username}, "", r.opts.PageSize)
	all, err := p.Drain(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to drain own %s listing: %w", kind, err)
	}
	return all, nil
}
