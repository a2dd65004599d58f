package ledger

import "time"

// Collection selects one of the two keyed record collections.
type Collection string

const (
	CollectionFollowed   Collection = "followed"
	CollectionUnfollowed Collection = "unfollowed"
)

// FollowRecord is one follow or unfollow outcome for a username. A username
// appears at most once per collection; an upsert overwrites the prior record.
type FollowRecord struct {
	Username string    `json:"username"`
	Time     time.Time `json:"time"`
	// Failed marks an attempted follow whose success could not be verified.
	// It blocks silent retries but is not itself an error.
	Failed bool `json:"failed,omitempty"`
	// NoActionTaken marks an unfollow where the desired end-state already
	// held, so the remote account graph was never touched.
	NoActionTaken bool `json:"noActionTaken,omitempty"`
}

// LikeRecord is one liked piece of media. The like log is append-only and
// unkeyed, ordered by insertion.
type LikeRecord struct {
	Username string    `json:"username"`
	MediaRef string    `json:"mediaRef"`
	Time     time.Time `json:"time"`
}
