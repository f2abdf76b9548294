package export

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/use-agent/docharvest/models"
)

// newMarkdownConverter creates a Converter with the base, commonmark and
// table plugins. Tables use minimal cell padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// RenderMarkdown builds one Markdown document with a section per
// successful result, each headed by its code block count and a token
// estimate. Relative links resolve against each target's URL.
// Failed results are listed at the end.
func RenderMarkdown(results []models.ScrapeResult, targets []models.Target) (string, error) {
	conv := newMarkdownConverter()

	urls := make(map[string]string, len(targets))
	for _, t := range targets {
		urls[t.Name] = t.URL
	}

	var b strings.Builder
	var failed []models.ScrapeResult
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
			continue
		}

		body := r.Content
		if r.ContentHTML != "" {
			md, err := conv.ConvertString(r.ContentHTML, converter.WithDomain(domainOf(urls[r.Name])))
			if err != nil {
				return "", fmt.Errorf("markdown: convert %s: %w", r.Name, err)
			}
			body = md
		}

		body = strings.TrimSpace(body)
		fmt.Fprintf(&b, "# %s\n\n", r.Title)
		if src := urls[r.Name]; src != "" {
			fmt.Fprintf(&b, "Source: <%s>\n\n", src)
		}
		fmt.Fprintf(&b, "_%d code blocks, ~%d tokens_\n\n", len(r.CodeBlocks), estimateTokens(body))
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	if len(failed) > 0 {
		b.WriteString("# Failed\n\n")
		for _, r := range failed {
			fmt.Fprintf(&b, "- `%s`: %s\n", r.Name, r.Error)
		}
	}

	return b.String(), nil
}

// WriteMarkdown renders the digest and writes it to path, replacing any
// existing file.
func WriteMarkdown(results []models.ScrapeResult, targets []models.Target, path string) error {
	doc, err := RenderMarkdown(results, targets)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeInternal, "render markdown", err)
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return models.NewScrapeError(models.ErrCodeOutputWrite, "write "+path, err)
	}
	return nil
}

// domainOf returns scheme://host of rawURL, or "" if it cannot be parsed.
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
