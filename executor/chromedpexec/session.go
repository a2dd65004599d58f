package chromedpexec

import (
	"context"
	"fmt"
	"os"
	"time"

	"instagrow/utils/io"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const loginSettle = 5 * time.Second

// InitSession leaves the browser logged in: it restores a persisted cookie
// session when one is still valid and performs a fresh credential login
// otherwise. The resulting cookies are persisted for the next run.
func (e *Executor) InitSession(ctx context.Context, username string, password string) error {
	if e.options.CookiePath != "" && io.FileExists(e.options.CookiePath) {
		if err := e.loadCookies(ctx); err != nil {
			e.log.Warn("failed to restore cookie session, logging in fresh", zap.Error(err))
		} else if loggedIn, err := e.isLoggedIn(ctx); err != nil {
			return err
		} else if loggedIn {
			e.log.Info("session restored from cookies")
			return nil
		} else {
			e.log.Info("persisted cookies expired, logging in fresh")
		}
	}

	if username == "" || password == "" {
		return fmt.Errorf("no valid session and no credentials to log in with")
	}
	if err := e.run(ctx,
		chromedp.Navigate(baseURL+"/accounts/login/"),
		chromedp.Sleep(navigateSettle),
		chromedp.SendKeys(`input[name="username"]`, username, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="password"]`, password, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.Sleep(loginSettle),
	); err != nil {
		return fmt.Errorf("login flow failed: %w", err)
	}
	var loginError string
	if err := e.run(ctx, chromedp.Evaluate(jsLoginErrorText, &loginError)); err != nil {
		return fmt.Errorf("failed to read login result: %w", err)
	}
	if loginError != "" {
		return fmt.Errorf("login rejected: %s", loginError)
	}
	if loggedIn, err := e.isLoggedIn(ctx); err != nil {
		return err
	} else if !loggedIn {
		return fmt.Errorf("login did not produce a session")
	}

	// The post-login prompts cover the page until dismissed.
	var dismissed int
	if err := e.run(ctx,
		chromedp.Evaluate(jsDismissDialogs, &dismissed),
		chromedp.Sleep(time.Second),
		chromedp.Evaluate(jsDismissDialogs, &dismissed),
	); err != nil {
		e.log.Warn("failed to dismiss post-login prompts", zap.Error(err))
	}

	if err := e.saveCookies(ctx); err != nil {
		e.log.Warn("failed to persist session cookies", zap.Error(err))
	}
	e.log.Info("logged in", zap.String("username", username))
	return nil
}

func (e *Executor) isLoggedIn(ctx context.Context) (bool, error) {
	if err := e.run(ctx,
		chromedp.Navigate(baseURL+"/"),
		chromedp.Sleep(navigateSettle),
	); err != nil {
		return false, fmt.Errorf("failed to open home page: %w", err)
	}
	var loggedIn bool
	if err := e.run(ctx, chromedp.Evaluate(jsIsLoggedIn, &loggedIn)); err != nil {
		return false, fmt.Errorf("failed to read login state: %w", err)
	}
	return loggedIn, nil
}

func (e *Executor) saveCookies(ctx context.Context) error {
	if e.options.CookiePath == "" {
		return nil
	}
	var cookies []*network.Cookie
	if err := e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	})); err != nil {
		return fmt.Errorf("failed to read browser cookies: %w", err)
	}
	return io.WriteJSONToFile(e.options.CookiePath, cookies)
}

func (e *Executor) loadCookies(ctx context.Context) error {
	var cookies []*network.CookieParam
	if err := io.ReadJSONFromFile(e.options.CookiePath, &cookies); err != nil {
		return fmt.Errorf("failed to read cookie file: %w", err)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("cookie file is empty")
	}
	if err := e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(cookies).Do(ctx)
	})); err != nil {
		return fmt.Errorf("failed to set browser cookies: %w", err)
	}
	return nil
}

func clearCookiesAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return network.ClearBrowserCookies().Do(ctx)
	})
}

func (e *Executor) removeCookieFile() error {
	if e.options.CookiePath == "" {
		return nil
	}
	if err := os.Remove(e.options.CookiePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cookie file: %w", err)
	}
	return nil
}
