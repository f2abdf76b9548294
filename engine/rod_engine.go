package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/docharvest/config"
	"github.com/use-agent/docharvest/models"
	"github.com/ysmood/gson"
)

// RodEngine drives a local Chromium through the DevTools protocol.
type RodEngine struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      config.BrowserConfig
	routers  []*rod.HijackRouter
}

// NewRodLauncher returns a Launcher that starts Chromium with cfg.
func NewRodLauncher(cfg config.BrowserConfig) Launcher {
	return func(ctx context.Context) (Engine, error) {
		return LaunchRod(ctx, cfg)
	}
}

// LaunchRod starts Chromium and connects to it.
func LaunchRod(ctx context.Context, cfg config.BrowserConfig) (*RodEngine, error) {
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		// Cleanup waits for a process that may never have started.
		l.Kill()
		_ = os.RemoveAll(l.Get(flags.UserDataDir))
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	return &RodEngine{browser: browser, launcher: l, cfg: cfg}, nil
}

func (e *RodEngine) Name() string { return "rod" }

// NewPage opens a blank tab. Stealth scripts and resource blocking are
// installed here, before the first navigation, so they cover every load.
func (e *RodEngine) NewPage(ctx context.Context) (Page, error) {
	page, err := e.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open page", err)
	}
	// Drop the acquisition context; each operation binds its own.
	page = page.Context(context.Background())

	if e.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if router := setupHijack(page, e.cfg.BlockedResourceTypes); router != nil {
		e.routers = append(e.routers, router)
	}

	return &rodPage{page: page}, nil
}

// Close stops request interception, closes the browser and removes the
// launcher's temporary profile.
func (e *RodEngine) Close() error {
	for _, r := range e.routers {
		_ = r.Stop()
	}
	err := e.browser.Close()
	e.launcher.Kill()
	e.launcher.Cleanup()
	slog.Info("browser closed")
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

type rodPage struct {
	page *rod.Page
}

// Navigate registers the network-idle waiter before navigating; set up
// afterwards it could miss the event and wait until ctx expires. Only the
// main frame's networkIdle counts, iframes settle on their own schedule.
func (r *rodPage) Navigate(ctx context.Context, url string) error {
	p := r.page.Context(ctx)

	if err := (proto.PageSetLifecycleEventsEnabled{Enabled: true}).Call(p); err != nil {
		return err
	}
	waitIdle := p.EachEvent(mainFrameIdle(p.FrameID))
	if err := p.Navigate(url); err != nil {
		return err
	}
	waitIdle()

	// EachEvent's wait returns silently when ctx ends.
	return ctx.Err()
}

// mainFrameIdle matches the networkIdle lifecycle event of frameID.
func mainFrameIdle(frameID proto.PageFrameID) func(*proto.PageLifecycleEvent) bool {
	return func(e *proto.PageLifecycleEvent) bool {
		return e.FrameID == frameID && e.Name == proto.PageLifecycleEventNameNetworkIdle
	}
}

func (r *rodPage) WaitElement(ctx context.Context, selector string) error {
	return r.page.Context(ctx).WaitElementsMoreThan(selector, 0)
}

func (r *rodPage) TextContent(ctx context.Context, selector string) (string, error) {
	return r.property(ctx, selector, "textContent")
}

func (r *rodPage) InnerHTML(ctx context.Context, selector string) (string, error) {
	return r.property(ctx, selector, "innerHTML")
}

func (r *rodPage) InnerTexts(ctx context.Context, selector string) ([]string, error) {
	els, err := r.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func (r *rodPage) property(ctx context.Context, selector, name string) (string, error) {
	has, el, err := r.page.Context(ctx).Has(selector)
	if err != nil {
		return "", err
	}
	if !has {
		return "", fmt.Errorf("%w: %s", ErrNoElement, selector)
	}

	v, err := el.Property(name)
	if err != nil {
		return "", err
	}
	return jsonString(v), nil
}

// jsonString reads a DOM property value, treating null as empty.
func jsonString(v gson.JSON) string {
	if v.Nil() {
		return ""
	}
	return v.Str()
}
