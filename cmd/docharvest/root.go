package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/docharvest/config"
	"github.com/use-agent/docharvest/engine"
	"github.com/use-agent/docharvest/export"
	"github.com/use-agent/docharvest/models"
	"github.com/use-agent/docharvest/scraper"
	"github.com/use-agent/docharvest/targets"
	"github.com/use-agent/docharvest/webhook"
)

// newRootCmd builds the command. Flag defaults come from cfg, which the
// flags then overwrite in place. Progress goes to out, logs to errOut.
func newRootCmd(cfg *config.Config, out, errOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "docharvest",
		Short:         "Harvest titles, text and code samples from documentation pages",
		Long:          "Loads each target page in a headless browser, extracts its title, main content and code blocks, and writes the results to a JSON file.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, out, errOut)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	f := cmd.Flags()
	f.StringVar(&cfg.TargetsFile, "targets", cfg.TargetsFile, "YAML file with the target list (default: built-in Foundation Models articles)")
	f.StringVarP(&cfg.Output.Path, "output", "o", cfg.Output.Path, "JSON output path; the directory must exist")
	f.StringVar(&cfg.Output.MarkdownPath, "markdown", cfg.Output.MarkdownPath, "also write a Markdown digest to this path")
	f.StringVar(&cfg.Engine.Name, "engine", cfg.Engine.Name, `page engine: "browser" or "http"`)
	f.DurationVar(&cfg.Scraper.Delay, "delay", cfg.Scraper.Delay, "pause after each target")
	f.DurationVar(&cfg.Scraper.NavigationTimeout, "nav-timeout", cfg.Scraper.NavigationTimeout, "navigation and network-idle timeout")
	f.DurationVar(&cfg.Scraper.SelectorTimeout, "selector-timeout", cfg.Scraper.SelectorTimeout, "main content wait timeout")
	f.BoolVar(&cfg.Browser.Headless, "headless", cfg.Browser.Headless, "run the browser headless")
	f.BoolVar(&cfg.Browser.Stealth, "stealth", cfg.Browser.Stealth, "inject anti-detection scripts")
	f.StringVar(&cfg.Webhook.URL, "webhook", cfg.Webhook.URL, "POST a completion event to this URL")
	f.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")

	return cmd
}

// run executes Setup → Harvest → Finalize. Teardown of the engine happens
// inside the harvester.
func run(ctx context.Context, cfg *config.Config, out, errOut io.Writer) error {
	// ── 1. Logging ──────────────────────────────────────────────────
	initLogger(cfg.Log, errOut)

	// ── 2. Targets ──────────────────────────────────────────────────
	list, err := loadTargets(cfg.TargetsFile)
	if err != nil {
		return err
	}

	// ── 3. Engine ───────────────────────────────────────────────────
	launch, err := newLauncher(cfg)
	if err != nil {
		return err
	}
	cfg.Scraper.CaptureHTML = cfg.Output.MarkdownPath != ""

	slog.Info("docharvest starting",
		"engine", cfg.Engine.Name,
		"targets", len(list),
		"output", cfg.Output.Path,
		"delay", cfg.Scraper.Delay,
	)

	// ── 4. Harvest ──────────────────────────────────────────────────
	fmt.Fprintf(out, "🚀 Harvesting %d documentation pages...\n", len(list))
	h := scraper.NewHarvester(launch, scraper.NewExtractor(cfg.Scraper), cfg.Scraper.Delay, out)
	results, err := h.Run(ctx, list)
	if err != nil {
		return err
	}

	// ── 5. Finalize ─────────────────────────────────────────────────
	if err := export.WriteJSON(results, cfg.Output.Path); err != nil {
		return err
	}
	if cfg.Output.MarkdownPath != "" {
		if err := export.WriteMarkdown(results, list, cfg.Output.MarkdownPath); err != nil {
			return err
		}
	}
	export.WriteSummary(out, results)

	// ── 6. Notify (best effort) ─────────────────────────────────────
	if cfg.Webhook.URL != "" {
		notify(ctx, cfg.Webhook, cfg.Output.Path, results)
	}
	return nil
}

func loadTargets(path string) ([]models.Target, error) {
	if path != "" {
		return targets.LoadFile(path)
	}
	list := targets.Default()
	if err := targets.Validate(list); err != nil {
		return nil, err
	}
	return list, nil
}

func newLauncher(cfg *config.Config) (engine.Launcher, error) {
	switch cfg.Engine.Name {
	case "browser", "rod":
		return engine.NewRodLauncher(cfg.Browser), nil
	case "http":
		return engine.NewHTTPLauncher(cfg.Engine.HTTPTimeout, cfg.Browser.Proxy), nil
	default:
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("unknown engine %q (want browser or http)", cfg.Engine.Name), nil)
	}
}

func notify(ctx context.Context, cfg config.WebhookConfig, output string, results []models.ScrapeResult) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	ev := webhook.NewCompletedEvent(output, results)
	if err := webhook.Deliver(ctx, cfg.URL, cfg.Secret, ev); err != nil {
		slog.Warn("webhook delivery failed", "url", cfg.URL, "error", err)
		return
	}
	slog.Info("webhook delivered", "url", cfg.URL, "event", ev.Type)
}
