package pager

import (
	"context"
	"errors"
	"fmt"
	"instagrow/executor"
)

// ErrExhausted is returned by Next once the remote listing has signalled its
// final page. A Pager is finite and non-restartable; traversing again means
// constructing a new one.
var ErrExhausted = errors.New("listing exhausted")

// Pager lazily pulls pages of candidate identifiers from a remote paginated
// listing. Each Next issues exactly one remote request. A transport failure
// propagates immediately and poisons the pager: resumption from the last
// cursor is the caller's problem, because mid-listing failures are treated
// as exceptional rather than expected.
type Pager struct {
	exec     executor.Executor
	listing  executor.Listing
	cursor   string
	pageSize int
	done     bool
}

const DefaultPageSize = 50

func New(exec executor.Executor, listing executor.Listing, startCursor string, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{
		exec:     exec,
		listing:  listing,
		cursor:   startCursor,
		pageSize: pageSize,
	}
}

// Next pulls one page and returns its identifiers in listing order.
func (p *Pager) Next(ctx context.Context) ([]string, error) {
	if p.done {
		return nil, ErrExhausted
	}
	page, err := p.exec.NextListingPage(ctx, p.cursor, p.pageSize, p.listing)
	if err != nil {
		p.done = true
		return nil, fmt.Errorf("failed to pull %s page: %w", p.listing.Kind, err)
	}
	p.cursor = page.NextCursor
	if page.Done {
		p.done = true
	}
	return page.IDs, nil
}

// Exhausted reports whether the listing has terminated.
func (p *Pager) Exhausted() bool {
	return p.done
}

// Drain pulls every remaining page and returns all identifiers in order.
func (p *Pager) Drain(ctx context.Context) ([]string, error) {
	all := []string{}
	for {
		ids, err := p.Next(ctx)
		if errors.Is(err, ErrExhausted) {
			return all, nil
		} else if err != nil {
			return nil, err
		}
		all = append(all, ids...)
	}
}
