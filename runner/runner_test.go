package runner

import (
	"context"
	"errors"
	"instagrow/executor"
	"instagrow/executor/executortest"
	"instagrow/ledger"
	"instagrow/pager"
	"instagrow/report"
	"instagrow/workflow"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWorkflow struct {
	followFn   func(username string) (workflow.FollowOutcome, error)
	unfollowFn func(username string) (workflow.UnfollowOutcome, error)
	likeFn     func(username string) (int, error)

	followed   []string
	unfollowed []string
	liked      []string
}

func (f *fakeWorkflow) Follow(ctx context.Context, username string, skipPrivate bool) (workflow.FollowOutcome, error) {
	f.followed = append(f.followed, username)
	if f.followFn != nil {
		return f.followFn(username)
	}
	return workflow.FollowOutcomeConfirmed, nil
}

func (f *fakeWorkflow) Unfollow(ctx context.Context, username string) (workflow.UnfollowOutcome, error) {
	f.unfollowed = append(f.unfollowed, username)
	if f.unfollowFn != nil {
		return f.unfollowFn(username)
	}
	return workflow.UnfollowOutcomeConfirmed, nil
}

func (f *fakeWorkflow) LikeUserMedia(ctx context.Context, username string, minCount int, maxCount int) (int, error) {
	f.liked = append(f.liked, username)
	if f.likeFn != nil {
		return f.likeFn(username)
	}
	return minCount, nil
}

type fakeWaiter struct {
	followWaits int
	likeWaits   int
}

func (f *fakeWaiter) WaitFollow(ctx context.Context) error { f.followWaits++; return nil }
func (f *fakeWaiter) WaitLike(ctx context.Context) error   { f.likeWaits++; return nil }

func newTestLedger(t *testing.T) *ledger.Ledger {
	dir := t.TempDir()
	return ledger.Open(zap.NewNop(), &ledger.Options{
		FollowedPath:   filepath.Join(dir, "followed.json"),
		UnfollowedPath: filepath.Join(dir, "unfollowed.json"),
		LikedPath:      filepath.Join(dir, "liked.json"),
	})
}

func newTestRunner(t *testing.T, fake *executortest.Fake, wf *fakeWorkflow, opts Options) (*Runner, *fakeWaiter) {
	waiter := &fakeWaiter{}
	r := New(zap.NewNop(), fake, wf, waiter, newTestLedger(t), report.New(), opts)
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return r, waiter
}

func names(n int, prefix string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('a'+i%26)) + string(rune('0'+i/26))
	}
	return out
}

func TestBulkUnfollowStopsAtLimit(t *testing.T) {
	wf := &fakeWorkflow{}
	r, waiter := newTestRunner(t, &executortest.Fake{}, wf, Options{})

	candidates := names(20, "u")
	unfollowed, err := r.BulkUnfollow(context.Background(), SliceSource(candidates), 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, unfollowed)
	// exactly 5 unfollow actions, stopping immediately at the 5th success
	assert.Len(t, wf.unfollowed, 5)
	assert.Equal(t, 5, waiter.followWaits)
}

func TestBulkUnfollowNoOpsDoNotCountTowardLimit(t *testing.T) {
	wf := &fakeWorkflow{
		unfollowFn: func(username string) (workflow.UnfollowOutcome, error) {
			if username[len(username)-2] == 'a' || username[len(username)-2] == 'b' {
				return workflow.UnfollowOutcomeNotFollowing, nil
			}
			return workflow.UnfollowOutcomeConfirmed, nil
		},
	}
	r, _ := newTestRunner(t, &executortest.Fake{}, wf, Options{})

	unfollowed, err := r.BulkUnfollow(context.Background(), SliceSource(names(10, "u")), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, unfollowed)
	// two no-ops were processed on the way to three confirmed unfollows
	assert.Len(t, wf.unfollowed, 5)
}

func TestBulkUnfollowPredicateFilters(t *testing.T) {
	wf := &fakeWorkflow{}
	r, _ := newTestRunner(t, &executortest.Fake{}, wf, Options{})

	unfollowed, err := r.BulkUnfollow(context.Background(), SliceSource([]string{"keep1", "drop", "keep2"}), 10, func(username string) bool {
		return username != "drop"
	})
	require.NoError(t, err)
	assert.Equal(t, 2, unfollowed)
	assert.Equal(t, []string{"keep1", "keep2"}, wf.unfollowed)
}

func TestBulkUnfollowTakesExtendedBreaks(t *testing.T) {
	wf := &fakeWorkflow{}
	r, _ := newTestRunner(t, &executortest.Fake{}, wf, Options{UnfollowBreakEvery: 10})
	var pauses []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	unfollowed, err := r.BulkUnfollow(context.Background(), SliceSource(names(25, "u")), 25, nil)
	require.NoError(t, err)
	assert.Equal(t, 25, unfollowed)
	// breaks after the 10th and 20th confirmed unfollow
	require.Len(t, pauses, 2)
	for _, p := range pauses {
		assert.GreaterOrEqual(t, p, DefaultUnfollowBreakMin)
		assert.LessOrEqual(t, p, DefaultUnfollowBreakMax)
	}
}

func TestProcessCandidateSourceIsolatesFailures(t *testing.T) {
	wf := &fakeWorkflow{
		followFn: func(username string) (workflow.FollowOutcome, error) {
			if username == "bad" {
				return "", errors.New("page exploded")
			}
			return workflow.FollowOutcomeConfirmed, nil
		},
	}
	fake := &executortest.Fake{NextListingPageFn: executortest.PagedListing([][]string{{"good1", "bad", "good2"}})}
	r, _ := newTestRunner(t, fake, wf, Options{})

	p := pager.New(fake, executor.Listing{Kind: executor.ListingKindFollowers, Username: "src"}, "", 10)
	followed, err := r.ProcessCandidateSource(context.Background(), p, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, followed)
	assert.Equal(t, []string{"good1", "bad", "good2"}, wf.followed)
}

func TestProcessCandidateSourceAbortsOnBlocked(t *testing.T) {
	wf := &fakeWorkflow{
		followFn: func(username string) (workflow.FollowOutcome, error) {
			if username == "second" {
				return "", executor.NewBlockedError("follow second")
			}
			return workflow.FollowOutcomeConfirmed, nil
		},
	}
	fake := &executortest.Fake{NextListingPageFn: executortest.PagedListing([][]string{{"first", "second", "third"}})}
	r, _ := newTestRunner(t, fake, wf, Options{})

	p := pager.New(fake, executor.Listing{Kind: executor.ListingKindFollowers, Username: "src"}, "", 10)
	followed, err := r.ProcessCandidateSource(context.Background(), p, 0, nil)
	require.Error(t, err)
	assert.True(t, executor.IsBlocked(err))
	assert.Equal(t, 1, followed)
	// the batch stopped at the blocked candidate
	assert.Equal(t, []string{"first", "second"}, wf.followed)
}

func TestProcessCandidateSourceHonorsRunFollowCap(t *testing.T) {
	wf := &fakeWorkflow{}
	fake := &executortest.Fake{NextListingPageFn: executortest.PagedListing([][]string{names(10, "u")})}
	r, _ := newTestRunner(t, fake, wf, Options{RunFollowCap: 3})

	p := pager.New(fake, executor.Listing{Kind: executor.ListingKindFollowers, Username: "src"}, "", 10)
	followed, err := r.ProcessCandidateSource(context.Background(), p, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, followed)
	assert.Len(t, wf.followed, 3)
}

func TestProcessCandidateSourceChainsLikesAfterConfirmedFollow(t *testing.T) {
	wf := &fakeWorkflow{
		followFn: func(username string) (workflow.FollowOutcome, error) {
			if username == "reject" {
				return workflow.FollowOutcomeRejected, nil
			}
			return workflow.FollowOutcomeConfirmed, nil
		},
	}
	fake := &executortest.Fake{NextListingPageFn: executortest.PagedListing([][]string{{"ok", "reject"}})}
	r, waiter := newTestRunner(t, fake, wf, Options{})

	p := pager.New(fake, executor.Listing{Kind: executor.ListingKindFollowers, Username: "src"}, "", 10)
	_, err := r.ProcessCandidateSource(context.Background(), p, 0, &LikeOptions{Enabled: true, MinCount: 1, MaxCount: 2})
	require.NoError(t, err)
	// likes chain only after a confirmed follow
	assert.Equal(t, []string{"ok"}, wf.liked)
	assert.Equal(t, 1, waiter.likeWaits)
}

func TestProcessCandidateSourceSkipsExcluded(t *testing.T) {
	wf := &fakeWorkflow{}
	fake := &executortest.Fake{NextListingPageFn: executortest.PagedListing([][]string{{"me", "friend", "other"}})}
	r, _ := newTestRunner(t, fake, wf, Options{Username: "me", ExcludeUsers: []string{"friend"}})

	p := pager.New(fake, executor.Listing{Kind: executor.ListingKindFollowers, Username: "src"}, "", 10)
	followed, err := r.ProcessCandidateSource(context.Background(), p, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, followed)
	assert.Equal(t, []string{"other"}, wf.followed)
}

func TestBulkFollowStopsAtLimit(t *testing.T) {
	wf := &fakeWorkflow{}
	r, waiter := newTestRunner(t, &executortest.Fake{}, wf, Options{})

	followed, err := r.BulkFollow(context.Background(), names(8, "u"), true, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, followed)
	assert.Len(t, wf.followed, 4)
	assert.Equal(t, 4, waiter.followWaits)
}

func TestUnfollowNonMutual(t *testing.T) {
	wf := &fakeWorkflow{}
	fake := &executortest.Fake{
		NextListingPageFn: func(ctx context.Context, cursor string, pageSize int, listing executor.Listing) (executor.ListingPage, error) {
			switch listing.Kind {
			case executor.ListingKindFollowing:
				return executor.ListingPage{IDs: []string{"mutual", "ghosted1", "ghosted2", "friend"}, Done: true}, nil
			case executor.ListingKindFollowers:
				return executor.ListingPage{IDs: []string{"mutual", "fan"}, Done: true}, nil
			}
			return executor.ListingPage{Done: true}, nil
		},
	}
	r, _ := newTestRunner(t, fake, wf, Options{Username: "me", ExcludeUsers: []string{"friend"}})

	unfollowed, err := r.UnfollowNonMutual(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, unfollowed)
	assert.Equal(t, []string{"ghosted1", "ghosted2"}, wf.unfollowed)
}

func TestUnfollowUnknownSkipsLedgerFollowed(t *testing.T) {
	wf := &fakeWorkflow{}
	fake := &executortest.Fake{
		NextListingPageFn: func(ctx context.Context, cursor string, pageSize int, listing executor.Listing) (executor.ListingPage, error) {
			return executor.ListingPage{IDs: []string{"bot-followed", "manual1", "manual2"}, Done: true}, nil
		},
	}
	r, _ := newTestRunner(t, fake, wf, Options{Username: "me"})
	r.ledger.Upsert(ledger.FollowRecord{Username: "bot-followed", Time: time.Now()}, ledger.CollectionFollowed)

	unfollowed, err := r.UnfollowUnknown(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, unfollowed)
	assert.Equal(t, []string{"manual1", "manual2"}, wf.unfollowed)
}

func TestUnfollowOlderThan(t *testing.T) {
	wf := &fakeWorkflow{}
	fake := &executortest.Fake{
		NextListingPageFn: func(ctx context.Context, cursor string, pageSize int, listing executor.Listing) (executor.ListingPage, error) {
			return executor.ListingPage{IDs: []string{"old", "fresh", "manual"}, Done: true}, nil
		},
	}
	r, _ := newTestRunner(t, fake, wf, Options{Username: "me"})
	r.ledger.Upsert(ledger.FollowRecord{Username: "old", Time: time.Now().AddDate(0, 0, -30)}, ledger.CollectionFollowed)
	r.ledger.Upsert(ledger.FollowRecord{Username: "fresh", Time: time.Now().AddDate(0, 0, -2)}, ledger.CollectionFollowed)

	unfollowed, err := r.UnfollowOlderThan(context.Background(), 14, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, unfollowed)
	assert.Equal(t, []string{"old"}, wf.unfollowed)
}

func TestListManuallyFollowed(t *testing.T) {
	fake := &executortest.Fake{
		NextListingPageFn: func(ctx context.Context, cursor string, pageSize int, listing executor.Listing) (executor.ListingPage, error) {
			return executor.ListingPage{IDs: []string{"bot-followed", "manual"}, Done: true}, nil
		},
	}
	r, _ := newTestRunner(t, fake, &fakeWorkflow{}, Options{Username: "me"})
	r.ledger.Upsert(ledger.FollowRecord{Username: "bot-followed", Time: time.Now()}, ledger.CollectionFollowed)

	manual, err := r.ListManuallyFollowed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"manual"}, manual)
}

func TestPagedSource(t *testing.T) {
	fake := &executortest.Fake{NextListingPageFn: executortest.PagedListing([][]string{{"a", "b"}, {"c"}})}
	p := pager.New(fake, executor.Listing{Kind: executor.ListingKindFollowing, Username: "me"}, "", 2)
	source := PagedSource(p)

	var got []string
	for {
		u, ok, err := source.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, u)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
