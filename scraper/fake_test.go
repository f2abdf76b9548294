package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/use-agent/docharvest/engine"
)

// fakeDoc describes how a fake page behaves once navigated to a URL.
type fakeDoc struct {
	navErr     error
	hang       bool // navigation never reaches network idle
	noLandmark bool // landmark never appears
	noTitle    bool
	title      string
	content    string
	codes      []string
	html       string
}

type fakePage struct {
	docs    map[string]fakeDoc
	current *fakeDoc
	visited []string
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.visited = append(p.visited, url)
	p.current = nil

	doc, ok := p.docs[url]
	if !ok {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", url)
	}
	if doc.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if doc.navErr != nil {
		return doc.navErr
	}
	p.current = &doc
	return nil
}

func (p *fakePage) WaitElement(ctx context.Context, selector string) error {
	if p.current == nil || p.current.noLandmark {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *fakePage) TextContent(ctx context.Context, selector string) (string, error) {
	switch selector {
	case TitleSelector:
		if p.current.noTitle {
			return "", fmt.Errorf("%w: %s", engine.ErrNoElement, selector)
		}
		return p.current.title, nil
	case ContentSelector:
		return p.current.content, nil
	}
	return "", fmt.Errorf("%w: %s", engine.ErrNoElement, selector)
}

func (p *fakePage) InnerTexts(ctx context.Context, selector string) ([]string, error) {
	return p.current.codes, nil
}

func (p *fakePage) InnerHTML(ctx context.Context, selector string) (string, error) {
	return p.current.html, nil
}

type fakeEngine struct {
	page    *fakePage
	pageErr error
	closed  int
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) NewPage(context.Context) (engine.Page, error) {
	if e.pageErr != nil {
		return nil, e.pageErr
	}
	return e.page, nil
}

func (e *fakeEngine) Close() error {
	e.closed++
	return nil
}

func launcherFor(e *fakeEngine) engine.Launcher {
	return func(context.Context) (engine.Engine, error) { return e, nil }
}

func failingLauncher(context.Context) (engine.Engine, error) {
	return nil, errors.New("chromium not found")
}
