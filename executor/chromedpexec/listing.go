package chromedpexec

import (
	"context"
	"encoding/json"
	"fmt"
	"instagrow/executor"
	"net/url"

	"github.com/chromedp/chromedp"
)

// GraphQL query hashes for the paginated listing connections.
const (
	queryHashFollowers = "c76146de99bb02f6415203be841dd25a"
	queryHashFollowing = "d04b0a864b4b54837c0d870b0e77e076"
	queryHashLikers    = "d5d763b1e2acf209d62d22d184488e57"
)

// jsFetchListingTemplate fetches one listing page from within the page so
// the request carries the session cookies.
const jsFetchListingTemplate = `(async function fetchListing() {
	const response = await fetch('%s/graphql/query/?query_hash=%s&variables=%s', {
		credentials: 'include',
	});
	if (!response.ok) {
		return '';
	}
	return await response.text();
})()`

type listingConnection struct {
	Edges []struct {
		Node struct {
			Username string `json:"username"`
		} `json:"node"`
	} `json:"edges"`
	PageInfo struct {
		EndCursor   string `json:"end_cursor"`
		HasNextPage bool   `json:"has_next_page"`
	} `json:"page_info"`
}

type listingResponse struct {
	Data struct {
		User *struct {
			EdgeFollowedBy *listingConnection `json:"edge_followed_by"`
			EdgeFollow     *listingConnection `json:"edge_follow"`
		} `json:"user"`
		ShortcodeMedia *struct {
			EdgeLikedBy *listingConnection `json:"edge_liked_by"`
		} `json:"shortcode_media"`
	} `json:"data"`
	Status string `json:"status"`
}

// NextListingPage fetches one page of the selected listing. The cursor is
// the opaque end cursor of the previous page, empty for the first page.
func (e *Executor) NextListingPage(ctx context.Context, cursor string, pageSize int, listing executor.Listing) (executor.ListingPage, error) {
	variables := map[string]interface{}{
		"first": pageSize,
	}
	if cursor != "" {
		variables["after"] = cursor
	}
	var queryHash string
	switch listing.Kind {
	case executor.ListingKindFollowers, executor.ListingKindFollowing:
		if listing.Username == "" {
			return executor.ListingPage{}, fmt.Errorf("%s listing requires a username", listing.Kind)
		}
		id, err := e.resolveUserID(ctx, listing.Username)
		if err != nil {
			return executor.ListingPage{}, err
		}
		variables["id"] = id
		queryHash = queryHashFollowers
		if listing.Kind == executor.ListingKindFollowing {
			queryHash = queryHashFollowing
		}
	case executor.ListingKindLikers:
		if listing.MediaRef == "" {
			return executor.ListingPage{}, fmt.Errorf("likers listing requires a media ref")
		}
		variables["shortcode"] = listing.MediaRef
		queryHash = queryHashLikers
	default:
		return executor.ListingPage{}, fmt.Errorf("unsupported listing kind: %s", listing.Kind)
	}

	encoded, err := json.Marshal(variables)
	if err != nil {
		return executor.ListingPage{}, fmt.Errorf("failed to encode listing variables: %w", err)
	}
	js := fmt.Sprintf(jsFetchListingTemplate, baseURL, queryHash, url.QueryEscape(string(encoded)))
	var body string
	if err := e.run(ctx, chromedp.Evaluate(js, &body, awaitPromise)); err != nil {
		return executor.ListingPage{}, executor.NewTransientError("fetch listing page", err)
	}
	if body == "" {
		return executor.ListingPage{}, executor.NewTransientError("fetch listing page", fmt.Errorf("listing endpoint returned no body"))
	}
	var response listingResponse
	if err := json.Unmarshal([]byte(body), &response); err != nil {
		return executor.ListingPage{}, executor.NewTransientError("fetch listing page", fmt.Errorf("malformed listing response: %w", err))
	}
	if response.Status != "ok" {
		return executor.ListingPage{}, executor.NewTransientError("fetch listing page", fmt.Errorf("listing endpoint status %q", response.Status))
	}

	connection := response.connection(listing.Kind)
	if connection == nil {
		return executor.ListingPage{}, executor.NewTransientError("fetch listing page", fmt.Errorf("listing connection missing from response"))
	}
	page := executor.ListingPage{
		IDs:        make([]string, 0, len(connection.Edges)),
		NextCursor: connection.PageInfo.EndCursor,
		Done:       !connection.PageInfo.HasNextPage,
	}
	for _, edge := range connection.Edges {
		if edge.Node.Username != "" {
			page.IDs = append(page.IDs, edge.Node.Username)
		}
	}
	return page, nil
}

func (r *listingResponse) connection(kind executor.ListingKind) *listingConnection {
	switch kind {
	case executor.ListingKindFollowers:
		if r.Data.User != nil {
			return r.Data.User.EdgeFollowedBy
		}
	case executor.ListingKindFollowing:
		if r.Data.User != nil {
			return r.Data.User.EdgeFollow
		}
	case executor.ListingKindLikers:
		if r.Data.ShortcodeMedia != nil {
			return r.Data.ShortcodeMedia.EdgeLikedBy
		}
	}
	return nil
}
