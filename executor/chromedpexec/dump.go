package chromedpexec

import (
	"context"
	"fmt"

	"instagrow/utils/io"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/yosssi/gohtml"
)

func (e *Executor) pageHTML(ctx context.Context) (string, error) {
	var pageHTML string
	if err := e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		pageHTML, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	})); err != nil {
		return "", err
	}
	return pageHTML, nil
}

// DumpPage writes a prettified snapshot of the current page into the dump
// directory and returns its path. With no dump directory configured it is a
// no-op returning an empty path.
func (e *Executor) DumpPage(ctx context.Context, label string) (string, error) {
	if e.options.DumpDir == "" {
		return "", nil
	}
	pageHTML, err := e.pageHTML(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to capture page html: %w", err)
	}
	path := e.dumpPath(label)
	if err := io.WriteStringToFile(path, gohtml.Format(pageHTML)); err != nil {
		return "", fmt.Errorf("failed to write page dump: %w", err)
	}
	return path, nil
}
