package executor

import "time"

// Observer is called synchronously by an Executor while it drives the page,
// so the core can account for executor-side sleeps and likes without the
// executor reaching into core state.
type Observer interface {
	OnSleep(d time.Duration)
	OnLiked(username string, mediaRef string)
	OnNote(text string)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnSleep(time.Duration)  {}
func (NopObserver) OnLiked(string, string) {}
func (NopObserver) OnNote(string)          {}
