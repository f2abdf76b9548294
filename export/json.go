// Package export writes harvest results to disk and reports on them.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/use-agent/docharvest/models"
)

// WriteJSON writes results as a 2-space indented JSON array to path,
// replacing any existing file. The parent directory must already exist.
func WriteJSON(results []models.ScrapeResult, path string) error {
	if results == nil {
		results = []models.ScrapeResult{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return models.NewScrapeError(models.ErrCodeInternal, "encode results", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return models.NewScrapeError(models.ErrCodeOutputWrite, "write "+path, err)
	}
	return nil
}

// Summarize returns how many results succeeded out of the total.
func Summarize(results []models.ScrapeResult) (successful, total int) {
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	return successful, len(results)
}

// WriteSummary prints the final summary line.
func WriteSummary(w io.Writer, results []models.ScrapeResult) {
	ok, total := Summarize(results)
	fmt.Fprintf(w, "\n✅ Done! %d/%d successful\n", ok, total)
}
