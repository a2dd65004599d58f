package report

import (
	"fmt"
	"time"
)

// Observer adapts a Report into the synchronous observer the Action Executor
// calls while it drives a page.
type Observer struct {
	Report *Report
}

func (o *Observer) OnSleep(d time.Duration) {
	o.Report.Add(NewNoteItem(fmt.Sprintf("executor slept %s", d)))
}

func (o *Observer) OnLiked(username string, mediaRef string) {
	o.Report.Add(NewLikeItem(username, mediaRef))
}

func (o *Observer) OnNote(text string) {
	o.Report.Add(NewNoteItem(text))
}
