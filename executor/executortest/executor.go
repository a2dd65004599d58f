// Package executortest provides a configurable in-memory Executor for tests.
package executortest

import (
	"context"
	"instagrow/executor"
)

// Fake implements executor.Executor with overridable function fields and
// records every remote call in order. Unset fields behave as benign no-ops.
type Fake struct {
	Calls []string

	NavigateToFn             func(ctx context.Context, identifier string) (executor.NavigateResult, error)
	FetchProfileAttributesFn func(ctx context.Context, username string) (*executor.ProfileAttributes, error)
	ClickFollowFn            func(ctx context.Context) (bool, error)
	ClickUnfollowFn          func(ctx context.Context) (bool, error)
	IsFollowingFn            func(ctx context.Context) (bool, error)
	DetectBlockedBannerFn    func(ctx context.Context) (bool, error)
	ListUserMediaFn          func(ctx context.Context, username string) ([]string, error)
	OpenMediaFn              func(ctx context.Context, mediaRef string) error
	CloseMediaFn             func(ctx context.Context) error
	LikeCurrentMediaFn       func(ctx context.Context, shouldLike executor.MediaPredicate) (executor.LikeResult, error)
	NextListingPageFn        func(ctx context.Context, cursor string, pageSize int, listing executor.Listing) (executor.ListingPage, error)
	ResetSessionFn           func(ctx context.Context) error
}

var _ executor.Executor = (*Fake)(nil)

func (f *Fake) record(call string) {
	f.Calls = append(f.Calls, call)
}

// CallCount returns how many recorded calls match the given name.
func (f *Fake) CallCount(name string) int {
	n := 0
	for _, c := range f.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *Fake) NavigateTo(ctx context.Context, identifier string) (executor.NavigateResult, error) {
	f.record("NavigateTo")
	if f.NavigateToFn != nil {
		return f.NavigateToFn(ctx, identifier)
	}
	return executor.NavigateResult{Status: 200, Found: true}, nil
}

func (f *Fake) FetchProfileAttributes(ctx context.Context, username string) (*executor.ProfileAttributes, error) {
	f.record("FetchProfileAttributes")
	if f.FetchProfileAttributesFn != nil {
		return f.FetchProfileAttributesFn(ctx, username)
	}
	return &executor.ProfileAttributes{Username: username, FollowerCount: 100, FollowingCount: 100}, nil
}

func (f *Fake) ClickFollow(ctx context.Context) (bool, error) {
	f.record("ClickFollow")
	if f.ClickFollowFn != nil {
		return f.ClickFollowFn(ctx)
	}
	return true, nil
}

func (f *Fake) ClickUnfollow(ctx context.Context) (bool, error) {
	f.record("ClickUnfollow")
	if f.ClickUnfollowFn != nil {
		return f.ClickUnfollowFn(ctx)
	}
	return true, nil
}

func (f *Fake) IsFollowing(ctx context.Context) (bool, error) {
	f.record("IsFollowing")
	if f.IsFollowingFn != nil {
		return f.IsFollowingFn(ctx)
	}
	return false, nil
}

func (f *Fake) DetectBlockedBanner(ctx context.Context) (bool, error) {
	f.record("DetectBlockedBanner")
	if f.DetectBlockedBannerFn != nil {
		return f.DetectBlockedBannerFn(ctx)
	}
	return false, nil
}

func (f *Fake) ListUserMedia(ctx context.Context, username string) ([]string, error) {
	f.record("ListUserMedia")
	if f.ListUserMediaFn != nil {
		return f.ListUserMediaFn(ctx, username)
	}
	return nil, nil
}

func (f *Fake) OpenMedia(ctx context.Context, mediaRef string) error {
	f.record("OpenMedia")
	if f.OpenMediaFn != nil {
		return f.OpenMediaFn(ctx, mediaRef)
	}
	return nil
}

func (f *Fake) CloseMedia(ctx context.Context) error {
	f.record("CloseMedia")
	if f.CloseMediaFn != nil {
		return f.CloseMediaFn(ctx)
	}
	return nil
}

func (f *Fake) LikeCurrentMedia(ctx context.Context, shouldLike executor.MediaPredicate) (executor.LikeResult, error) {
	f.record("LikeCurrentMedia")
	if f.LikeCurrentMediaFn != nil {
		return f.LikeCurrentMediaFn(ctx, shouldLike)
	}
	return executor.LikeResult{Liked: true, MediaRef: "p/fake"}, nil
}

func (f *Fake) NextListingPage(ctx context.Context, cursor string, pageSize int, listing executor.Listing) (executor.ListingPage, error) {
	f.record("NextListingPage")
	if f.NextListingPageFn != nil {
		return f.NextListingPageFn(ctx, cursor, pageSize, listing)
	}
	return executor.ListingPage{Done: true}, nil
}

func (f *Fake) ResetSession(ctx context.Context) error {
	f.record("ResetSession")
	if f.ResetSessionFn != nil {
		return f.ResetSessionFn(ctx)
	}
	return nil
}

func (f *Fake) Close() error {
	return nil
}

// PagedListing returns a NextListingPage implementation serving the given
// pages in order, with cursors "c1", "c2", ... and the end flag on the final
// page.
func PagedListing(pages [][]string) func(ctx context.Context, cursor string, pageSize int, listing executor.Listing) (executor.ListingPage, error) {
	pulls := 0
	return func(ctx context.Context, cursor string, pageSize int, listing executor.Listing) (executor.ListingPage, error) {
		if pulls >= len(pages) {
			return executor.ListingPage{Done: true}, nil
		}
		page := executor.ListingPage{
			IDs:        pages[pulls],
			NextCursor: "c" + string(rune('1'+pulls)),
			Done:       pulls == len(pages)-1,
		}
		pulls++
		return page, nil
	}
}
