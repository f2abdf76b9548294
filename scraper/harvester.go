package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/use-agent/docharvest/engine"
	"github.com/use-agent/docharvest/models"
)

// Harvester owns the engine lifecycle and walks the target list with a
// single reusable page. It is not safe for concurrent use.
type Harvester struct {
	launch    engine.Launcher
	extractor *Extractor
	delay     time.Duration
	out       io.Writer
}

// NewHarvester creates a Harvester. Progress lines are written to out.
func NewHarvester(launch engine.Launcher, extractor *Extractor, delay time.Duration, out io.Writer) *Harvester {
	if out == nil {
		out = io.Discard
	}
	return &Harvester{
		launch:    launch,
		extractor: extractor,
		delay:     delay,
		out:       out,
	}
}

// Run harvests targets in order and returns one result per target.
//
// Lifecycle:
//
//  1. Launch engine            – fatal on failure
//  2. DEFER: engine.Close      – runs on every exit path
//  3. Open the page handle     – fatal on failure
//  4. For each target: extract, report, then pause for the fixed delay
//
// A failing target never stops the run; only launch, page acquisition and
// ctx cancellation return an error, in which case no results are returned.
func (h *Harvester) Run(ctx context.Context, targets []models.Target) ([]models.ScrapeResult, error) {
	// ── 1. Launch ─────────────────────────────────────────────────────
	eng, err := h.launch(ctx)
	if err != nil {
		return nil, asSetupError("failed to start engine", err)
	}

	// ── 2. Guaranteed teardown ────────────────────────────────────────
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			slog.Warn("engine close failed", "engine", eng.Name(), "error", cerr)
		}
	}()

	// ── 3. Page handle ────────────────────────────────────────────────
	page, err := eng.NewPage(ctx)
	if err != nil {
		return nil, asSetupError("failed to open page", err)
	}
	slog.Info("harvest started", "engine", eng.Name(), "targets", len(targets))

	// ── 4. Harvest ────────────────────────────────────────────────────
	results := make([]models.ScrapeResult, 0, len(targets))
	for _, target := range targets {
		fmt.Fprintf(h.out, "\n📄 %s...\n", target.Name)

		start := time.Now()
		res := h.extractor.Extract(ctx, page, target)
		results = append(results, res)
		h.report(res, time.Since(start))

		if err := pause(ctx, h.delay); err != nil {
			return nil, fmt.Errorf("harvest interrupted after %q: %w", target.Name, err)
		}
	}

	return results, nil
}

// report prints the progress line for res and logs it.
func (h *Harvester) report(res models.ScrapeResult, took time.Duration) {
	if res.Success {
		fmt.Fprintf(h.out, "   ✓ %d chars, %d code blocks\n", res.RawLength, len(res.CodeBlocks))
		slog.Debug("target harvested",
			"name", res.Name,
			"chars", res.RawLength,
			"codeBlocks", len(res.CodeBlocks),
			"took", took,
		)
		return
	}

	fmt.Fprintf(h.out, "   ✗ %s\n", res.Error)
	slog.Warn("target failed",
		"name", res.Name,
		"code", res.ErrorCode,
		"error", res.Error,
		"took", took,
	)
}

// pause sleeps for d or until ctx ends.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// asSetupError tags an untyped setup failure as a browser failure.
func asSetupError(msg string, err error) error {
	if models.CodeOf(err) != models.ErrCodeInternal {
		return err
	}
	return models.NewScrapeError(models.ErrCodeBrowserCrash, msg, err)
}
