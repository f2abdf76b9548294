package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/use-agent/docharvest/config"
	"github.com/use-agent/docharvest/engine"
	"github.com/use-agent/docharvest/models"
)

// Selectors of the extraction recipe.
const (
	ContentSelector = "article, main"
	TitleSelector   = "h1"
	CodeSelector    = "pre code, pre"
)

// Extractor applies the extraction recipe to one target at a time.
type Extractor struct {
	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration

	// CaptureHTML also reads the landmark's inner HTML into ContentHTML.
	CaptureHTML bool
}

// NewExtractor builds an Extractor from the scraper configuration.
func NewExtractor(cfg config.ScraperConfig) *Extractor {
	return &Extractor{
		NavigationTimeout: cfg.NavigationTimeout,
		SelectorTimeout:   cfg.SelectorTimeout,
		CaptureHTML:       cfg.CaptureHTML,
	}
}

// Extract navigates page to target and extracts its article. It never
// returns an error: any failure becomes a failure result.
//
// Steps:
//  1. Navigate and wait for network idle  (NavigationTimeout)
//  2. Wait for the article/main landmark  (SelectorTimeout)
//  3. Title   = textContent of the first h1
//  4. Content = textContent of the first landmark
//  5. Code    = innerText of every "pre code, pre" match, trimmed, empties dropped
func (x *Extractor) Extract(ctx context.Context, page engine.Page, target models.Target) models.ScrapeResult {
	res, err := x.extract(ctx, page, target)
	if err != nil {
		return models.NewFailure(target.Name, err)
	}
	return res
}

func (x *Extractor) extract(ctx context.Context, page engine.Page, target models.Target) (models.ScrapeResult, error) {
	// ── 1. Navigate ───────────────────────────────────────────────────
	navCtx, navCancel := context.WithTimeout(ctx, x.NavigationTimeout)
	err := page.Navigate(navCtx, target.URL)
	navCancel()
	if err != nil {
		return models.ScrapeResult{}, categorizeError(err, models.ErrCodeNavigation,
			"navigation to "+target.URL+" failed", x.NavigationTimeout)
	}

	// ── 2. Wait for the landmark ──────────────────────────────────────
	waitCtx, waitCancel := context.WithTimeout(ctx, x.SelectorTimeout)
	err = page.WaitElement(waitCtx, ContentSelector)
	waitCancel()
	if err != nil {
		return models.ScrapeResult{}, categorizeError(err, models.ErrCodeExtraction,
			fmt.Sprintf("waiting for %q failed", ContentSelector), x.SelectorTimeout)
	}

	// ── 3. Title ──────────────────────────────────────────────────────
	title, err := page.TextContent(ctx, TitleSelector)
	if err != nil {
		return models.ScrapeResult{}, categorizeError(err, models.ErrCodeExtraction, "reading title failed", 0)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return models.ScrapeResult{}, models.NewScrapeError(models.ErrCodeExtraction, "h1 heading is empty", nil)
	}

	// ── 4. Content ────────────────────────────────────────────────────
	content, err := page.TextContent(ctx, ContentSelector)
	if err != nil {
		return models.ScrapeResult{}, categorizeError(err, models.ErrCodeExtraction, "reading content failed", 0)
	}
	rawLength := utf8.RuneCountInString(content)
	content = strings.TrimSpace(content)
	if content == "" {
		return models.ScrapeResult{}, models.NewScrapeError(models.ErrCodeExtraction, "main content is empty", nil)
	}

	// ── 5. Code blocks ────────────────────────────────────────────────
	texts, err := page.InnerTexts(ctx, CodeSelector)
	if err != nil {
		return models.ScrapeResult{}, categorizeError(err, models.ErrCodeExtraction, "reading code blocks failed", 0)
	}
	codeBlocks := make([]string, 0, len(texts))
	for _, text := range texts {
		if code := strings.TrimSpace(text); code != "" {
			codeBlocks = append(codeBlocks, code)
		}
	}

	res := models.NewSuccess(target.Name, title, content, codeBlocks)
	res.RawLength = rawLength

	// ── 6. Landmark HTML for the markdown digest ──────────────────────
	if x.CaptureHTML {
		inner, err := page.InnerHTML(ctx, ContentSelector)
		if err != nil {
			return models.ScrapeResult{}, categorizeError(err, models.ErrCodeExtraction, "reading content HTML failed", 0)
		}
		res.ContentHTML = inner
	}

	return res, nil
}

// categorizeError wraps raw errors into typed ScrapeErrors. Deadline errors
// become timeouts and mention the limit when one applies; cancellation keeps
// its own code.
func categorizeError(err error, code, msg string, limit time.Duration) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		if limit > 0 {
			msg = fmt.Sprintf("%s: timeout after %s", msg, limit)
		} else {
			msg += ": timeout"
		}
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeCanceled, "request canceled", err)
	default:
		return models.NewScrapeError(code, msg, err)
	}
}
