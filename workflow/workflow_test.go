package workflow

import (
	"context"
	"errors"
	"instagrow/executor"
	"instagrow/executor/executortest"
	"instagrow/ledger"
	"instagrow/throttle"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestWorkflow(t *testing.T, fake *executortest.Fake, opts Options) (*Workflow, *ledger.Ledger) {
	dir := t.TempDir()
	l := ledger.Open(zap.NewNop(), &ledger.Options{
		FollowedPath:   filepath.Join(dir, "followed.json"),
		UnfollowedPath: filepath.Join(dir, "unfollowed.json"),
		LikedPath:      filepath.Join(dir, "liked.json"),
	})
	th := throttle.New(zap.NewNop(), l, throttle.Config{
		MaxFollowsPerHour: 1000,
		MaxFollowsPerDay:  10000,
		MaxLikesPerDay:    10000,
	})
	w := New(zap.NewNop(), fake, l, th, opts)
	w.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return w, l
}

func TestFollowIsIdempotent(t *testing.T) {
	fake := &executortest.Fake{
		IsFollowingFn: func(ctx context.Context) (bool, error) { return true, nil },
	}
	w, l := newTestWorkflow(t, fake, Options{})

	outcome, err := w.Follow(context.Background(), "alice", false)
	require.NoError(t, err)
	assert.Equal(t, FollowOutcomeConfirmed, outcome)
	require.Len(t, l.Followed(), 1)

	remoteCalls := len(fake.Calls)
	outcome, err = w.Follow(context.Background(), "alice", false)
	require.NoError(t, err)
	assert.Equal(t, FollowOutcomeAlreadyFollowed, outcome)
	assert.Len(t, l.Followed(), 1)
	// the second call performed no remote action at all
	assert.Len(t, fake.Calls, remoteCalls)
}

func TestFollowRejectsPrivateProfile(t *testing.T) {
	fake := &executortest.Fake{
		FetchProfileAttributesFn: func(ctx context.Context, username string) (*executor.ProfileAttributes, error) {
			return &executor.ProfileAttributes{Username: username, IsPrivate: true, FollowerCount: 10, FollowingCount: 10}, nil
		},
	}
	w, l := newTestWorkflow(t, fake, Options{})

	outcome, err := w.Follow(context.Background(), "alice", true)
	require.NoError(t, err)
	assert.Equal(t, FollowOutcomeRejected, outcome)
	assert.Empty(t, l.Followed())
	assert.Equal(t, 0, fake.CallCount("ClickFollow"))
}

func TestFollowRestrictionBounds(t *testing.T) {
	testCases := []struct {
		name  string
		attrs executor.ProfileAttributes
		opts  Options
		want  FollowOutcome
	}{
		{
			name:  "too few followers",
			attrs: executor.ProfileAttributes{FollowerCount: 5, FollowingCount: 10},
			opts:  Options{MinFollowers: 10},
			want:  FollowOutcomeRejected,
		},
		{
			name:  "too many following",
			attrs: executor.ProfileAttributes{FollowerCount: 100, FollowingCount: 9000},
			opts:  Options{MaxFollowing: 5000},
			want:  FollowOutcomeRejected,
		},
		{
			name:  "ratio below minimum",
			attrs: executor.ProfileAttributes{FollowerCount: 10, FollowingCount: 1000},
			opts:  Options{RatioMin: 0.2},
			want:  FollowOutcomeRejected,
		},
		{
			name:  "custom predicate rejects",
			attrs: executor.ProfileAttributes{FollowerCount: 100, FollowingCount: 100, Biography: "spam"},
			opts: Options{ShouldFollow: func(attrs *executor.ProfileAttributes) bool {
				return attrs.Biography != "spam"
			}},
			want: FollowOutcomeRejected,
		},
		{
			name:  "within all bounds",
			attrs: executor.ProfileAttributes{FollowerCount: 100, FollowingCount: 100},
			opts:  Options{MinFollowers: 10, MaxFollowers: 1000, RatioMin: 0.2, RatioMax: 4},
			want:  FollowOutcomeConfirmed,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			attrs := tc.attrs
			fake := &executortest.Fake{
				FetchProfileAttributesFn: func(ctx context.Context, username string) (*executor.ProfileAttributes, error) {
					a := attrs
					a.Username = username
					return &a, nil
				},
				IsFollowingFn: func(ctx context.Context) (bool, error) { return true, nil },
			}
			w, _ := newTestWorkflow(t, fake, tc.opts)
			outcome, err := w.Follow(context.Background(), "alice", false)
			require.NoError(t, err)
			assert.Equal(t, tc.want, outcome)
		})
	}
}

func TestFollowVerificationFailureIsPersistedAndNotRetried(t *testing.T) {
	fake := &executortest.Fake{
		IsFollowingFn: func(ctx context.Context) (bool, error) { return false, nil },
	}
	w, l := newTestWorkflow(t, fake, Options{})

	outcome, err := w.Follow(context.Background(), "alice", false)
	assert.Equal(t, FollowOutcomeUnconfirmed, outcome)
	require.Error(t, err)
	assert.True(t, IsVerification(err))

	records := l.Followed()
	require.Len(t, records, 1)
	assert.True(t, records[0].Failed)

	// the failed record blocks any silent retry
	outcome, err = w.Follow(context.Background(), "alice", false)
	require.NoError(t, err)
	assert.Equal(t, FollowOutcomeAlreadyFollowed, outcome)
	assert.Equal(t, 1, fake.CallCount("ClickFollow"))
}

func TestUnfollowNoActionWhenNotFollowing(t *testing.T) {
	fake := &executortest.Fake{
		IsFollowingFn: func(ctx context.Context) (bool, error) { return false, nil },
	}
	w, l := newTestWorkflow(t, fake, Options{})

	outcome, err := w.Unfollow(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, UnfollowOutcomeNotFollowing, outcome)

	records := l.Unfollowed()
	require.Len(t, records, 1)
	assert.True(t, records[0].NoActionTaken)
	assert.Equal(t, 0, fake.CallCount("ClickUnfollow"))
}

func TestUnfollowTargetNotFound(t *testing.T) {
	fake := &executortest.Fake{
		NavigateToFn: func(ctx context.Context, identifier string) (executor.NavigateResult, error) {
			return executor.NavigateResult{Status: 404, Found: false}, nil
		},
	}
	w, l := newTestWorkflow(t, fake, Options{})

	outcome, err := w.Unfollow(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, UnfollowOutcomeNotFollowing, outcome)
	require.Len(t, l.Unfollowed(), 1)
	assert.True(t, l.Unfollowed()[0].NoActionTaken)
}

func TestUnfollowVerificationFailureIsNotPersisted(t *testing.T) {
	fake := &executortest.Fake{
		IsFollowingFn: func(ctx context.Context) (bool, error) { return true, nil },
	}
	w, l := newTestWorkflow(t, fake, Options{})

	_, err := w.Unfollow(context.Background(), "alice")
	require.Error(t, err)
	assert.True(t, IsVerification(err))
	// no write for this attempt: a later pass retries it
	assert.Empty(t, l.Unfollowed())
}

func TestUnfollowConfirmed(t *testing.T) {
	calls := 0
	fake := &executortest.Fake{
		IsFollowingFn: func(ctx context.Context) (bool, error) {
			calls++
			return calls == 1, nil // following before the click, not after
		},
	}
	w, l := newTestWorkflow(t, fake, Options{})

	outcome, err := w.Unfollow(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, UnfollowOutcomeConfirmed, outcome)
	require.Len(t, l.Unfollowed(), 1)
	assert.False(t, l.Unfollowed()[0].NoActionTaken)
}

func TestTransientErrorsAreRetriedWithLinearBackoff(t *testing.T) {
	attempts := 0
	fake := &executortest.Fake{
		NavigateToFn: func(ctx context.Context, identifier string) (executor.NavigateResult, error) {
			attempts++
			if attempts < 3 {
				return executor.NavigateResult{}, executor.NewTransientError("navigate", errors.New("rate limited"))
			}
			return executor.NavigateResult{Found: true}, nil
		},
		IsFollowingFn: func(ctx context.Context) (bool, error) { return true, nil },
	}
	w, _ := newTestWorkflow(t, fake, Options{RetryAttempts: 3, RetryBackoff: time.Second})
	var backoffs []time.Duration
	w.sleep = func(ctx context.Context, d time.Duration) error {
		backoffs = append(backoffs, d)
		return nil
	}

	outcome, err := w.Follow(context.Background(), "alice", false)
	require.NoError(t, err)
	assert.Equal(t, FollowOutcomeConfirmed, outcome)
	assert.Equal(t, 3, attempts)
	// the first two backoffs grow linearly
	require.GreaterOrEqual(t, len(backoffs), 2)
	assert.Equal(t, 1*time.Second, backoffs[0])
	assert.Equal(t, 2*time.Second, backoffs[1])
}

func TestRetriesExhaustEscalatesToFatal(t *testing.T) {
	fake := &executortest.Fake{
		NavigateToFn: func(ctx context.Context, identifier string) (executor.NavigateResult, error) {
			return executor.NavigateResult{}, executor.NewTransientError("navigate", errors.New("rate limited"))
		},
	}
	w, _ := newTestWorkflow(t, fake, Options{RetryAttempts: 2})

	_, err := w.Follow(context.Background(), "alice", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
	assert.Equal(t, 2, fake.CallCount("NavigateTo"))
}

func TestBlockedBannerResetsSessionAndAborts(t *testing.T) {
	fake := &executortest.Fake{
		NavigateToFn: func(ctx context.Context, identifier string) (executor.NavigateResult, error) {
			return executor.NavigateResult{}, executor.NewTransientError("navigate", errors.New("slow"))
		},
		DetectBlockedBannerFn: func(ctx context.Context) (bool, error) { return true, nil },
	}
	w, _ := newTestWorkflow(t, fake, Options{})

	_, err := w.Follow(context.Background(), "alice", false)
	require.Error(t, err)
	assert.True(t, executor.IsBlocked(err))
	assert.Equal(t, 1, fake.CallCount("ResetSession"))
	// blocked is terminal for the attempt: no further retries
	assert.Equal(t, 1, fake.CallCount("NavigateTo"))
}

func TestLikeUserMediaRecordsLikes(t *testing.T) {
	fake := &executortest.Fake{
		ListUserMediaFn: func(ctx context.Context, username string) ([]string, error) {
			return []string{"p/a", "p/b", "p/c", "p/d"}, nil
		},
	}
	w, l := newTestWorkflow(t, fake, Options{})

	liked, err := w.LikeUserMedia(context.Background(), "alice", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, liked)
	assert.Equal(t, 2, l.LikedCount())
	assert.Equal(t, 2, fake.CallCount("OpenMedia"))
	assert.Equal(t, 2, fake.CallCount("CloseMedia"))
}

func TestLikeUserMediaPredicateSkipsWithoutRecording(t *testing.T) {
	fake := &executortest.Fake{
		ListUserMediaFn: func(ctx context.Context, username string) ([]string, error) {
			return []string{"p/a"}, nil
		},
		LikeCurrentMediaFn: func(ctx context.Context, shouldLike executor.MediaPredicate) (executor.LikeResult, error) {
			if shouldLike != nil && !shouldLike(executor.MediaAttributes{Kind: executor.MediaKindVideo}) {
				return executor.LikeResult{Liked: false, MediaRef: "p/a"}, nil
			}
			return executor.LikeResult{Liked: true, MediaRef: "p/a"}, nil
		},
	}
	w, l := newTestWorkflow(t, fake, Options{
		ShouldLike: func(attrs executor.MediaAttributes) bool {
			return attrs.Kind != executor.MediaKindVideo
		},
	})

	liked, err := w.LikeUserMedia(context.Background(), "alice", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, liked)
	assert.Equal(t, 0, l.LikedCount())
}

func TestLikeUserMediaFailureAbortsBatch(t *testing.T) {
	opens := 0
	fake := &executortest.Fake{
		ListUserMediaFn: func(ctx context.Context, username string) ([]string, error) {
			return []string{"p/a", "p/b", "p/c"}, nil
		},
		OpenMediaFn: func(ctx context.Context, mediaRef string) error {
			opens++
			if opens == 2 {
				return errors.New("element not found")
			}
			return nil
		},
	}
	w, _ := newTestWorkflow(t, fake, Options{})

	liked, err := w.LikeUserMedia(context.Background(), "alice", 3, 3)
	require.Error(t, err)
	assert.Equal(t, 1, liked)
	assert.Equal(t, 2, opens)
}

func recordSleeps(w *Workflow) *[]time.Duration {
	var sleeps []time.Duration
	w.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return &sleeps
}

func TestFollowSleepsCooldownAfterConfirmed(t *testing.T) {
	fake := &executortest.Fake{
		IsFollowingFn: func(ctx context.Context) (bool, error) { return true, nil },
	}
	w, _ := newTestWorkflow(t, fake, Options{PostActionSleep: 42 * time.Second})
	sleeps := recordSleeps(w)

	outcome, err := w.Follow(context.Background(), "alice", false)
	require.NoError(t, err)
	require.Equal(t, FollowOutcomeConfirmed, outcome)
	assert.Equal(t, []time.Duration{42 * time.Second}, *sleeps)
}

func TestFollowSleepsCooldownAfterUnconfirmed(t *testing.T) {
	fake := &executortest.Fake{
		IsFollowingFn: func(ctx context.Context) (bool, error) { return false, nil },
	}
	w, _ := newTestWorkflow(t, fake, Options{PostActionSleep: 42 * time.Second})
	sleeps := recordSleeps(w)

	outcome, err := w.Follow(context.Background(), "alice", false)
	require.Error(t, err)
	require.Equal(t, FollowOutcomeUnconfirmed, outcome)
	// the click went out, so the cooldown applies even though verification failed
	assert.Contains(t, *sleeps, 42*time.Second)
}

func TestFollowSkipsCooldownWhenNoActionTaken(t *testing.T) {
	t.Run("already followed", func(t *testing.T) {
		fake := &executortest.Fake{}
		w, l := newTestWorkflow(t, fake, Options{PostActionSleep: 42 * time.Second})
		l.Upsert(ledger.FollowRecord{Username: "alice", Time: time.Now()}, ledger.CollectionFollowed)
		sleeps := recordSleeps(w)

		outcome, err := w.Follow(context.Background(), "alice", false)
		require.NoError(t, err)
		require.Equal(t, FollowOutcomeAlreadyFollowed, outcome)
		assert.Empty(t, *sleeps)
	})
	t.Run("rejected by restrictions", func(t *testing.T) {
		fake := &executortest.Fake{
			FetchProfileAttributesFn: func(ctx context.Context, username string) (*executor.ProfileAttributes, error) {
				return &executor.ProfileAttributes{Username: username, IsPrivate: true}, nil
			},
		}
		w, _ := newTestWorkflow(t, fake, Options{PostActionSleep: 42 * time.Second})
		sleeps := recordSleeps(w)

		outcome, err := w.Follow(context.Background(), "alice", true)
		require.NoError(t, err)
		require.Equal(t, FollowOutcomeRejected, outcome)
		assert.Empty(t, *sleeps)
	})
}

func TestUnfollowSleepsCooldownAfterConfirmed(t *testing.T) {
	calls := 0
	fake := &executortest.Fake{
		IsFollowingFn: func(ctx context.Context) (bool, error) {
			calls++
			return calls == 1, nil
		},
	}
	w, _ := newTestWorkflow(t, fake, Options{PostActionSleep: 42 * time.Second})
	sleeps := recordSleeps(w)

	outcome, err := w.Unfollow(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, UnfollowOutcomeConfirmed, outcome)
	assert.Equal(t, []time.Duration{42 * time.Second}, *sleeps)
}

func TestFollowChecksQuotaAfterAction(t *testing.T) {
	dir := t.TempDir()
	l := ledger.Open(zap.NewNop(), &ledger.Options{
		FollowedPath:   filepath.Join(dir, "followed.json"),
		UnfollowedPath: filepath.Join(dir, "unfollowed.json"),
		LikedPath:      filepath.Join(dir, "liked.json"),
	})
	th := throttle.New(zap.NewNop(), l, throttle.Config{
		MaxFollowsPerHour: 1,
		MaxFollowsPerDay:  1000,
		MaxLikesPerDay:    1000,
		Cooldown:          time.Millisecond,
	})
	fake := &executortest.Fake{
		IsFollowingFn: func(ctx context.Context) (bool, error) { return true, nil },
	}
	w := New(zap.NewNop(), fake, l, th, Options{PostActionSleep: time.Millisecond})

	// The follow itself fills the hour window, so the post-action quota
	// check blocks until the context expires.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	outcome, err := w.Follow(ctx, "alice", false)
	require.Equal(t, FollowOutcomeConfirmed, outcome)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, l.Followed(), 1)
}

func TestLikeUserMediaDropsCachedProfile(t *testing.T) {
	fake := &executortest.Fake{
		ListUserMediaFn: func(ctx context.Context, username string) ([]string, error) {
			return []string{"p/a"}, nil
		},
	}
	w, _ := newTestWorkflow(t, fake, Options{})

	require.NoError(t, w.navigate(context.Background(), "alice"))
	_, err := w.profileAttributes(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", w.cache.username)

	// opening media leaves the profile page, so the cached attributes must go
	_, err = w.LikeUserMedia(context.Background(), "alice", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, cachedProfile{}, w.cache)
	assert.Equal(t, 1, fake.CallCount("OpenMedia"))
}

type recordingObserver struct {
	executor.NopObserver
	liked []string
	notes []string
}

func (o *recordingObserver) OnLiked(username string, mediaRef string) {
	o.liked = append(o.liked, username+"/"+mediaRef)
}

func (o *recordingObserver) OnNote(text string) {
	o.notes = append(o.notes, text)
}

func TestObserverReceivesLikeEvents(t *testing.T) {
	fake := &executortest.Fake{
		ListUserMediaFn: func(ctx context.Context, username string) ([]string, error) {
			return []string{"abc"}, nil
		},
	}
	obs := &recordingObserver{}
	w, _ := newTestWorkflow(t, fake, Options{Observer: obs})

	liked, err := w.LikeUserMedia(context.Background(), "alice", 1, 1)
	require.NoError(t, err)
	require.Equal(t, 1, liked)
	assert.Equal(t, []string{"alice/p/fake"}, obs.liked)
}
