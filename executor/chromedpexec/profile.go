package chromedpexec

import (
	"context"
	"encoding/json"
	"fmt"
	"instagrow/executor"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const webProfileAppID = "936619743392459"

// jsFetchProfile fetches the profile info endpoint from within the page so
// the request carries the session cookies. Evaluates to the raw response
// body, or an empty string on a non-OK response.
const jsFetchProfileTemplate = `(async function fetchProfile() {
	const response = await fetch('https://i.instagram.com/api/v1/users/web_profile_info/?username=%s', {
		headers: {'x-ig-app-id': '%s'},
		credentials: 'include',
	});
	if (!response.ok) {
		return '';
	}
	return await response.text();
})()`

type webProfileResponse struct {
	Data struct {
		User *struct {
			ID            string `json:"id"`
			Username      string `json:"username"`
			EdgeFollowedBy struct {
				Count int `json:"count"`
			} `json:"edge_followed_by"`
			EdgeFollow struct {
				Count int `json:"count"`
			} `json:"edge_follow"`
			IsPrivate             bool   `json:"is_private"`
			IsVerified            bool   `json:"is_verified"`
			IsBusinessAccount     bool   `json:"is_business_account"`
			IsProfessionalAccount bool   `json:"is_professional_account"`
			Biography             string `json:"biography"`
			ExternalURL           string `json:"external_url"`
			CategoryName          string `json:"category_name"`
		} `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// FetchProfileAttributes reads the attribute set for username. The primary
// path is the in-page profile info endpoint; when that yields nothing the
// page HTML meta tags are parsed instead.
func (e *Executor) FetchProfileAttributes(ctx context.Context, username string) (*executor.ProfileAttributes, error) {
	var body string
	js := fmt.Sprintf(jsFetchProfileTemplate, username, webProfileAppID)
	if err := e.run(ctx, chromedp.Evaluate(js, &body, awaitPromise)); err != nil {
		return nil, executor.NewTransientError("fetch profile of "+username, err)
	}
	if body != "" {
		var response webProfileResponse
		if err := json.Unmarshal([]byte(body), &response); err == nil && response.Data.User != nil {
			user := response.Data.User
			attrs := &executor.ProfileAttributes{
				ID:             user.ID,
				Username:       user.Username,
				FollowerCount:  user.EdgeFollowedBy.Count,
				FollowingCount: user.EdgeFollow.Count,
				IsPrivate:      user.IsPrivate,
				IsVerified:     user.IsVerified,
				IsBusiness:     user.IsBusinessAccount,
				IsProfessional: user.IsProfessionalAccount,
				Biography:      user.Biography,
				ExternalURL:    user.ExternalURL,
				Category:       user.CategoryName,
			}
			if attrs.ID != "" {
				e.userIDs[username] = attrs.ID
			}
			return attrs, nil
		}
	}

	e.log.Debug("profile endpoint unavailable, parsing page meta",
		zap.String("username", username))
	html, err := e.pageHTML(ctx)
	if err != nil {
		return nil, executor.NewTransientError("read profile page of "+username, err)
	}
	attrs, err := ParseProfilePage(html)
	if err != nil {
		return nil, executor.NewTransientError("parse profile page of "+username, err)
	}
	if attrs.Username == "" {
		attrs.Username = username
	}
	return attrs, nil
}

// resolveUserID returns the numeric profile ID for username, fetching the
// profile if it has not been resolved in this session yet.
func (e *Executor) resolveUserID(ctx context.Context, username string) (string, error) {
	if id, ok := e.userIDs[username]; ok {
		return id, nil
	}
	if _, err := e.NavigateTo(ctx, username); err != nil {
		return "", err
	}
	attrs, err := e.FetchProfileAttributes(ctx, username)
	if err != nil {
		return "", err
	}
	if attrs.ID == "" {
		return "", fmt.Errorf("could not resolve profile id of %s", username)
	}
	return attrs.ID, nil
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}
