package engine

import (
	"context"
	"errors"
)

// ErrNoElement is returned when a selector matches nothing on the page.
var ErrNoElement = errors.New("no element matches selector")

// Engine owns a page-loading backend (a browser process or an HTTP client).
// Close must be called on every exit path.
type Engine interface {
	// Name returns the engine identifier ("rod" or "http").
	Name() string

	// NewPage opens a page handle that can be reused for many navigations.
	NewPage(ctx context.Context) (Page, error)

	// Close releases the backend.
	Close() error
}

// Page is a reusable browsing context. Every call is bounded by ctx.
type Page interface {
	// Navigate loads url and returns once the network is idle.
	Navigate(ctx context.Context, url string) error

	// WaitElement blocks until at least one element matches selector.
	WaitElement(ctx context.Context, selector string) error

	// TextContent returns the textContent of the first match.
	TextContent(ctx context.Context, selector string) (string, error)

	// InnerTexts returns the rendered text of every match in document order.
	InnerTexts(ctx context.Context, selector string) ([]string, error)

	// InnerHTML returns the inner HTML of the first match.
	InnerHTML(ctx context.Context, selector string) (string, error)
}

// Launcher starts an Engine. The caller owns the returned Engine.
type Launcher func(ctx context.Context) (Engine, error)
