package ledger

import (
	"fmt"
	"instagrow/utils/io"
	"os"
	"time"

	"go.uber.org/zap"
)

// Ledger is the durable store of every follow, unfollow and like the bot has
// performed. The in-memory copy is authoritative for the running process;
// every mutation is written through to disk synchronously, and a failed save
// is logged and swallowed rather than aborting the action that caused it.
//
// Ledger is not safe for concurrent use. The orchestrator is strictly
// sequential, so there is never more than one writer.
type Ledger struct {
	log *zap.Logger

	followedPath   string
	unfollowedPath string
	likedPath      string

	followed        []FollowRecord
	followedIndex   map[string]int
	unfollowed      []FollowRecord
	unfollowedIndex map[string]int
	liked           []LikeRecord

	now func() time.Time
}

type Options struct {
	FollowedPath   string
	UnfollowedPath string
	LikedPath      string
}

const (
	DefaultFollowedPath   = "followed.json"
	DefaultUnfollowedPath = "unfollowed.json"
	DefaultLikedPath      = "liked.json"
)

// Open loads the three collections from disk. Each collection is loaded in
// isolation: a missing or malformed file yields an empty collection and a
// warning, never an error, so one corrupt file cannot take down the others.
func Open(log *zap.Logger, options *Options) *Ledger {
	followedPath := DefaultFollowedPath
	unfollowedPath := DefaultUnfollowedPath
	likedPath := DefaultLikedPath
	if options != nil {
		if options.FollowedPath != "" {
			followedPath = options.FollowedPath
		}
		if options.UnfollowedPath != "" {
			unfollowedPath = options.UnfollowedPath
		}
		if options.LikedPath != "" {
			likedPath = options.LikedPath
		}
	}
	l := &Ledger{
		log:            log,
		followedPath:   followedPath,
		unfollowedPath: unfollowedPath,
		likedPath:      likedPath,
		now:            time.Now,
	}
	l.followed = loadRecords[FollowRecord](log, followedPath)
	l.unfollowed = loadRecords[FollowRecord](log, unfollowedPath)
	l.liked = loadRecords[LikeRecord](log, likedPath)
	l.followedIndex = buildIndex(l.followed)
	l.unfollowedIndex = buildIndex(l.unfollowed)
	return l
}

func loadRecords[T any](log *zap.Logger, path string) []T {
	var records []T
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return []T{}
	}
	if err := io.ReadJSONFromFile(path, &records); err != nil {
		log.Warn("ledger collection is unreadable, starting empty",
			zap.String("path", path), zap.Error(err))
		return []T{}
	}
	if records == nil {
		records = []T{}
	}
	return records
}

func buildIndex(records []FollowRecord) map[string]int {
	index := make(map[string]int, len(records))
	for i, r := range records {
		index[r.Username] = i
	}
	return index
}

// Get looks up the record for username in the given collection.
func (l *Ledger) Get(username string, collection Collection) (FollowRecord, bool) {
	records, index := l.collection(collection)
	if i, ok := index[username]; ok {
		return records[i], true
	}
	return FollowRecord{}, false
}

// Upsert replaces any existing record for the username in the given
// collection and writes the ledger through to disk.
func (l *Ledger) Upsert(record FollowRecord, collection Collection) {
	records, index := l.collection(collection)
	if i, ok := index[record.Username]; ok {
		records[i] = record
	} else {
		switch collection {
		case CollectionFollowed:
			l.followed = append(l.followed, record)
			l.followedIndex[record.Username] = len(l.followed) - 1
		case CollectionUnfollowed:
			l.unfollowed = append(l.unfollowed, record)
			l.unfollowedIndex[record.Username] = len(l.unfollowed) - 1
		}
	}
	l.save()
}

// AppendLike adds to the like log and writes the ledger through to disk.
func (l *Ledger) AppendLike(record LikeRecord) {
	l.liked = append(l.liked, record)
	l.save()
}

// RecordsWithin returns all records in the collection with
// now - record.Time < window. Linear scan; the corpus is bounded by the
// daily quotas so this stays small.
func (l *Ledger) RecordsWithin(collection Collection, window time.Duration) []FollowRecord {
	records, _ := l.collection(collection)
	now := l.now()
	within := []FollowRecord{}
	for _, r := range records {
		if now.Sub(r.Time) < window {
			within = append(within, r)
		}
	}
	return within
}

// LikesWithin returns the number of like records with now - record.Time < window.
func (l *Ledger) LikesWithin(window time.Duration) int {
	now := l.now()
	count := 0
	for _, r := range l.liked {
		if now.Sub(r.Time) < window {
			count++
		}
	}
	return count
}

// Followed returns a copy of the followed collection in insertion order.
func (l *Ledger) Followed() []FollowRecord {
	return append([]FollowRecord{}, l.followed...)
}

// Unfollowed returns a copy of the unfollowed collection in insertion order.
func (l *Ledger) Unfollowed() []FollowRecord {
	return append([]FollowRecord{}, l.unfollowed...)
}

func (l *Ledger) LikedCount() int {
	return len(l.liked)
}

func (l *Ledger) collection(collection Collection) ([]FollowRecord, map[string]int) {
	switch collection {
	case CollectionFollowed:
		return l.followed, l.followedIndex
	case CollectionUnfollowed:
		return l.unfollowed, l.unfollowedIndex
	default:
		panic(fmt.Sprintf("unknown ledger collection: %s", collection))
	}
}

// save writes all three collections as whole-file overwrites. A failure
// leaves the in-memory state authoritative; the worst case is losing the
// most recent write if the process dies before the next successful save.
func (l *Ledger) save() {
	if err := io.WriteJSONToFile(l.followedPath, l.followed); err != nil {
		l.log.Error("failed to save followed collection", zap.Error(err))
	}
	if err := io.WriteJSONToFile(l.unfollowedPath, l.unfollowed); err != nil {
		l.log.Error("failed to save unfollowed collection", zap.Error(err))
	}
	if err := io.WriteJSONToFile(l.likedPath, l.liked); err != nil {
		l.log.Error("failed to save liked collection", zap.Error(err))
	}
}
