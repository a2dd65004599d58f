package chromedpexec

import (
	"context"
	"fmt"
	"instagrow/executor"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ClickFollow clicks the follow button on the currently shown profile.
// Returns false without error when no follow button is present.
func (e *Executor) ClickFollow(ctx context.Context) (bool, error) {
	var clicked bool
	if err := e.run(ctx,
		chromedp.Evaluate(jsClickFollow, &clicked),
		chromedp.Sleep(time.Second),
	); err != nil {
		return false, executor.NewTransientError("click follow", err)
	}
	return clicked, nil
}

// ClickUnfollow opens the unfollow confirmation dialog and confirms it.
// Returns false without error when the profile shows no following button;
// a dialog that opens but cannot be confirmed is transient.
func (e *Executor) ClickUnfollow(ctx context.Context) (bool, error) {
	var opened bool
	if err := e.run(ctx,
		chromedp.Evaluate(jsOpenUnfollowDialog, &opened),
		chromedp.Sleep(time.Second),
	); err != nil {
		return false, executor.NewTransientError("open unfollow dialog", err)
	}
	if !opened {
		return false, nil
	}
	var confirmed bool
	if err := e.run(ctx,
		chromedp.Evaluate(jsConfirmUnfollow, &confirmed),
		chromedp.Sleep(time.Second),
	); err != nil {
		return false, executor.NewTransientError("confirm unfollow", err)
	}
	if !confirmed {
		return false, executor.NewTransientError("confirm unfollow", fmt.Errorf("dialog did not offer an unfollow entry"))
	}
	return true, nil
}

func (e *Executor) IsFollowing(ctx context.Context) (bool, error) {
	var following bool
	if err := e.run(ctx, chromedp.Evaluate(jsIsFollowing, &following)); err != nil {
		return false, executor.NewTransientError("read follow state", err)
	}
	return following, nil
}

// DetectBlockedBanner checks the current page for the platform's
// action-blocked notice. A positive detection also writes a page dump for
// later inspection.
func (e *Executor) DetectBlockedBanner(ctx context.Context) (bool, error) {
	var blocked bool
	if err := e.run(ctx, chromedp.Evaluate(jsBlockedBanner, &blocked)); err != nil {
		return false, executor.NewTransientError("detect blocked banner", err)
	}
	if blocked {
		if path, err := e.DumpPage(ctx, "blocked"); err != nil {
			e.log.Warn("failed to dump blocked page", zap.Error(err))
		} else if path != "" {
			e.log.Info("blocked page dumped", zap.String("path", path))
		}
	}
	return blocked, nil
}

// ListUserMedia returns the media shortcodes visible on the profile grid of
// username, most recent first.
func (e *Executor) ListUserMedia(ctx context.Context, username string) ([]string, error) {
	var hrefs []string
	if err := e.run(ctx, chromedp.Evaluate(jsListMediaHrefs, &hrefs)); err != nil {
		return nil, executor.NewTransientError("list media of "+username, err)
	}
	seen := make(map[string]struct{}, len(hrefs))
	refs := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		ref := shortcodeFromHref(href)
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (e *Executor) OpenMedia(ctx context.Context, mediaRef string) error {
	if err := e.run(ctx,
		chromedp.Navigate(mediaURL(mediaRef)),
		chromedp.Sleep(navigateSettle),
	); err != nil {
		return executor.NewTransientError("open media "+mediaRef, err)
	}
	return nil
}

func (e *Executor) CloseMedia(ctx context.Context) error {
	if err := e.run(ctx,
		chromedp.NavigateBack(),
		chromedp.Sleep(time.Second),
	); err != nil {
		return executor.NewTransientError("close media", err)
	}
	return nil
}

type mediaAttributesResult struct {
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	SourceRef string `json:"sourceRef"`
}

// LikeCurrentMedia likes the media page currently open, unless shouldLike
// rejects it or it is already liked. The like is verified by re-reading the
// like state after the click.
func (e *Executor) LikeCurrentMedia(ctx context.Context, shouldLike executor.MediaPredicate) (executor.LikeResult, error) {
	var location string
	if err := e.run(ctx, chromedp.Location(&location)); err != nil {
		return executor.LikeResult{}, executor.NewTransientError("read media location", err)
	}
	mediaRef := shortcodeFromHref(location)

	var raw mediaAttributesResult
	if err := e.run(ctx, chromedp.Evaluate(jsMediaAttributes, &raw)); err != nil {
		return executor.LikeResult{}, executor.NewTransientError("read media attributes", err)
	}
	attrs := executor.MediaAttributes{
		Kind:      executor.MediaKind(raw.Kind),
		Text:      raw.Text,
		SourceRef: raw.SourceRef,
	}
	if shouldLike != nil && !shouldLike(attrs) {
		e.log.Debug("media rejected by predicate", zap.String("mediaRef", mediaRef))
		return executor.LikeResult{Liked: false, MediaRef: mediaRef}, nil
	}

	var alreadyLiked bool
	if err := e.run(ctx, chromedp.Evaluate(jsIsMediaLiked, &alreadyLiked)); err != nil {
		return executor.LikeResult{}, executor.NewTransientError("read like state", err)
	}
	if alreadyLiked {
		return executor.LikeResult{Liked: false, MediaRef: mediaRef}, nil
	}

	var clicked bool
	if err := e.run(ctx,
		chromedp.Evaluate(jsClickLike, &clicked),
		chromedp.Sleep(time.Second),
	); err != nil {
		return executor.LikeResult{}, executor.NewTransientError("click like", err)
	}
	if !clicked {
		return executor.LikeResult{}, executor.NewTransientError("click like", fmt.Errorf("like button not found"))
	}
	var liked bool
	if err := e.run(ctx, chromedp.Evaluate(jsIsMediaLiked, &liked)); err != nil {
		return executor.LikeResult{}, executor.NewTransientError("verify like", err)
	}
	if !liked {
		return executor.LikeResult{}, executor.NewTransientError("verify like", fmt.Errorf("like state did not flip"))
	}
	return executor.LikeResult{Liked: true, MediaRef: mediaRef}, nil
}
