// Package report keeps an append-only audit trail of one run: every follow,
// unfollow, like, skip and error, in the order they happened.
package report

import (
	"fmt"
	"instagrow/utils/io"
	"instagrow/utils/slicesx"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Report struct {
	RunID   string
	Started time.Time
	Items   []Item
}

type Item interface {
	GetText() string
	GetAbbreviatedText() string
}

func New() *Report {
	return &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
}

func (r *Report) Add(item Item) {
	r.Items = append(r.Items, item)
}

func (r *Report) GetText() string {
	itemTexts := slicesx.Map(r.Items, func(item Item, _ int) string {
		return item.GetText()
	})
	header := fmt.Sprintf("run %s started %s", r.RunID, r.Started.Format(time.RFC3339))
	return header + "\n" + strings.Join(itemTexts, "\n")
}

// Summary counts the terminal outcomes recorded so far.
func (r *Report) Summary() string {
	var follows, unfollows, likes, skips, errs int
	for _, item := range r.Items {
		switch item.(type) {
		case *FollowItem:
			follows++
		case *UnfollowItem:
			unfollows++
		case *LikeItem:
			likes++
		case *SkipItem:
			skips++
		case *ErrorItem:
			errs++
		}
	}
	return fmt.Sprintf("followed=%d unfollowed=%d liked=%d skipped=%d errors=%d", follows, unfollows, likes, skips, errs)
}

func (r *Report) WriteFile(path string) error {
	if err := io.WriteStringToFile(path, r.GetText()+"\n"); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	return nil
}

type FollowItem struct {
	Username string
	Outcome  string
}

func NewFollowItem(username string, outcome string) *FollowItem {
	return &FollowItem{Username: username, Outcome: outcome}
}

func (i *FollowItem) GetText() string {
	return fmt.Sprintf("follow(username=%s, outcome=%s)", i.Username, i.Outcome)
}

func (i *FollowItem) GetAbbreviatedText() string {
	return i.GetText()
}

type UnfollowItem struct {
	Username      string
	NoActionTaken bool
}

func NewUnfollowItem(username string, noActionTaken bool) *UnfollowItem {
	return &UnfollowItem{Username: username, NoActionTaken: noActionTaken}
}

func (i *UnfollowItem) GetText() string {
	return fmt.Sprintf("unfollow(username=%s, noActionTaken=%t)", i.Username, i.NoActionTaken)
}

func (i *UnfollowItem) GetAbbreviatedText() string {
	return i.GetText()
}

type LikeItem struct {
	Username string
	MediaRef string
}

func NewLikeItem(username string, mediaRef string) *LikeItem {
	return &LikeItem{Username: username, MediaRef: mediaRef}
}

func (i *LikeItem) GetText() string {
	return fmt.Sprintf("like(username=%s, media=%s)", i.Username, i.MediaRef)
}

func (i *LikeItem) GetAbbreviatedText() string {
	return i.GetText()
}

type SkipItem struct {
	Username string
	Reason   string
}

func NewSkipItem(username string, reason string) *SkipItem {
	return &SkipItem{Username: username, Reason: reason}
}

func (i *SkipItem) GetText() string {
	return fmt.Sprintf("skip(username=%s, reason=\"%s\")", i.Username, i.Reason)
}

func (i *SkipItem) GetAbbreviatedText() string {
	return i.GetText()
}

type ErrorItem struct {
	Username string
	Op       string
	Err      string
}

func NewErrorItem(username string, op string, err error) *ErrorItem {
	return &ErrorItem{Username: username, Op: op, Err: err.Error()}
}

func (i *ErrorItem) GetText() string {
	return fmt.Sprintf("error(username=%s, op=%s): %s", i.Username, i.Op, i.Err)
}

const errorAbbreviationLength = 100

func (i *ErrorItem) GetAbbreviatedText() string {
	text := i.GetText()
	if len(text) > errorAbbreviationLength {
		text = text[:errorAbbreviationLength] + "..."
	}
	return text
}

type NoteItem struct {
	Text string
}

func NewNoteItem(text string) *NoteItem {
	return &NoteItem{Text: text}
}

func (i *NoteItem) GetText() string {
	return fmt.Sprintf("note: %s", i.Text)
}

func (i *NoteItem) GetAbbreviatedText() string {
	return i.GetText()
}
