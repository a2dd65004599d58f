// Package chromedpexec implements the action executor over a real Chrome
// instance driven through chromedp. All page interaction goes through
// serialized chromedp runs against a single shared tab; the higher layers
// never see chromedp types.
package chromedpexec

import (
	"context"
	"fmt"
	"instagrow/executor"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	baseURL = "https://www.instagram.com"

	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

	// navigateSettle is how long the page is given to settle after a
	// navigation before inspecting it.
	navigateSettle = 2 * time.Second
)

type Executor struct {
	mu          *sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	log         *zap.Logger
	options     Options

	// userIDs caches numeric profile IDs resolved for listing queries.
	userIDs map[string]string
}

type Options struct {
	// Headful disables headless mode for debugging a run visually.
	Headful bool
	// UserAgent overrides the masked default.
	UserAgent string
	// CookiePath is the JSON file the session cookies are persisted to
	// between runs. Empty disables persistence.
	CookiePath string
	// DumpDir receives prettified page dumps on blocked detections. Empty
	// disables dumps.
	DumpDir string
}

func New(ctx context.Context, log *zap.Logger, options Options) *Executor {
	if options.UserAgent == "" {
		options.UserAgent = defaultUserAgent
	}
	ops := chromedp.DefaultExecAllocatorOptions[:]
	if options.Headful {
		ops = append(ops, chromedp.Flag("headless", false))
	}
	ops = append(ops,
		chromedp.UserAgent(options.UserAgent),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, ops...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	return &Executor{
		mu:          &sync.Mutex{},
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		log:         log,
		options:     options,
		userIDs:     make(map[string]string),
	}
}

// run executes chromedp actions against the shared tab. The caller context
// only gates entry; the actions themselves run on the browser context.
func (e *Executor) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return chromedp.Run(e.ctx, actions...)
}

// Close tears down the tab context and then the allocator so the spawned
// browser process is reaped.
func (e *Executor) Close() error {
	e.cancel()
	e.allocCancel()
	return nil
}

func profileURL(username string) string {
	return fmt.Sprintf("%s/%s/", baseURL, username)
}

func mediaURL(mediaRef string) string {
	return fmt.Sprintf("%s/p/%s/", baseURL, mediaRef)
}

// NavigateTo opens the profile page for identifier. A Found=false result
// means the remote profile does not exist; a soft rate-limit page is
// surfaced as a transient error so the retry layer backs off.
func (e *Executor) NavigateTo(ctx context.Context, identifier string) (executor.NavigateResult, error) {
	if identifier == "" {
		return executor.NavigateResult{}, fmt.Errorf("identifier cannot be empty")
	}
	if err := e.run(ctx,
		chromedp.Navigate(profileURL(identifier)),
		chromedp.Sleep(navigateSettle),
	); err != nil {
		return executor.NavigateResult{}, executor.NewTransientError("navigate to "+identifier, err)
	}
	var state string
	if err := e.run(ctx, chromedp.Evaluate(jsPageState, &state)); err != nil {
		return executor.NavigateResult{}, executor.NewTransientError("inspect page for "+identifier, err)
	}
	switch state {
	case pageStateNotFound:
		return executor.NavigateResult{Status: 404, Found: false}, nil
	case pageStateRateLimited:
		return executor.NavigateResult{}, executor.NewTransientError("navigate to "+identifier, fmt.Errorf("rate limit page shown"))
	default:
		return executor.NavigateResult{Status: 200, Found: true}, nil
	}
}

// ResetSession wipes the browser cookies and the persisted cookie file,
// forcing the next run to start from a fresh login.
func (e *Executor) ResetSession(ctx context.Context) error {
	if err := e.run(ctx, clearCookiesAction()); err != nil {
		return fmt.Errorf("failed to clear browser cookies: %w", err)
	}
	if err := e.removeCookieFile(); err != nil {
		return err
	}
	e.log.Info("session reset, cookies wiped")
	return nil
}

// shortcodeFromHref extracts the media shortcode from a permalink path such
// as /p/Cxyz123/ or /reel/Cxyz123/.
func shortcodeFromHref(href string) string {
	parts := strings.Split(strings.Trim(href, "/"), "/")
	for i, part := range parts {
		if (part == "p" || part == "reel") && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

func (e *Executor) dumpPath(label string) string {
	name := fmt.Sprintf("%s-%s.html", time.Now().Format("20060102-150405"), label)
	return filepath.Join(e.options.DumpDir, name)
}
