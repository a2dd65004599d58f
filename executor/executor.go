package executor

import (
	"context"
)

// Executor is the UI-driving channel through which every remote action is
// performed. Implementations are expected to be stateful: navigation moves a
// single shared page, and the click/verify calls act on whatever the page is
// currently showing.
type Executor interface {
	NavigateTo(ctx context.Context, identifier string) (NavigateResult, error)
	FetchProfileAttributes(ctx context.Context, username string) (*ProfileAttributes, error)
	ClickFollow(ctx context.Context) (bool, error)
	ClickUnfollow(ctx context.Context) (bool, error)
	IsFollowing(ctx context.Context) (bool, error)
	DetectBlockedBanner(ctx context.Context) (bool, error)
	ListUserMedia(ctx context.Context, username string) ([]string, error)
	OpenMedia(ctx context.Context, mediaRef string) error
	CloseMedia(ctx context.Context) error
	LikeCurrentMedia(ctx context.Context, shouldLike MediaPredicate) (LikeResult, error)
	NextListingPage(ctx context.Context, cursor string, pageSize int, listing Listing) (ListingPage, error)
	ResetSession(ctx context.Context) error
	Close() error
}

type ListingKind string

const (
	ListingKindFollowers ListingKind = "followers"
	ListingKindFollowing ListingKind = "following"
	ListingKindLikers    ListingKind = "likers"
)

// Listing selects which remote listing to traverse: the followers or
// following of a username, or the likers of a media item.
type Listing struct {
	Kind     ListingKind
	Username string
	MediaRef string
}

type NavigateResult struct {
	Status int
	Found  bool
}

type ProfileAttributes struct {
	ID             string
	Username       string
	FollowerCount  int
	FollowingCount int
	IsPrivate      bool
	IsVerified     bool
	IsBusiness     bool
	IsProfessional bool
	Biography      string
	ExternalURL    string
	Category       string
}

// Ratio returns the follower-to-following ratio, or 0 when the profile
// follows nobody.
func (p *ProfileAttributes) Ratio() float64 {
	if p.FollowingCount == 0 {
		return 0
	}
	return float64(p.FollowerCount) / float64(p.FollowingCount)
}

type MediaKind string

const (
	MediaKindPhoto    MediaKind = "photo"
	MediaKindVideo    MediaKind = "video"
	MediaKindCarousel MediaKind = "carousel"
)

type MediaAttributes struct {
	Kind      MediaKind
	Text      string
	SourceRef string
}

// MediaPredicate decides whether a piece of media that is currently open
// should be liked. A nil predicate means always-accept.
type MediaPredicate func(attrs MediaAttributes) bool

type LikeResult struct {
	Liked    bool
	MediaRef string
}

type ListingPage struct {
	IDs        []string
	NextCursor string
	Done       bool
}
