// Package targets holds the list of documentation pages to harvest.
package targets

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/use-agent/docharvest/models"
	"gopkg.in/yaml.v3"
)

const baseURL = "https://developer.apple.com/documentation/foundationmodels/"

// Default returns the built-in Foundation Models articles, in harvest order.
// Each call returns a fresh slice.
func Default() []models.Target {
	return []models.Target{
		{Name: "generating_content", URL: baseURL + "generating-content-and-performing-tasks-with-foundation-models"},
		{Name: "prompting", URL: baseURL + "prompting-an-on-device-foundation-model"},
		{Name: "guided_generation", URL: baseURL + "generating-swift-data-structures-with-guided-generation"},
		{Name: "tool_calling", URL: baseURL + "expanding-generation-with-tool-calling"},
		{Name: "custom_adapters", URL: baseURL + "loading-and-using-a-custom-adapter-with-foundation-models"},
	}
}

// File is the on-disk YAML layout:
//
//	targets:
//	  - name: prompting
//	    url: https://example.com/prompting
type File struct {
	Targets []models.Target `yaml:"targets"`
}

// LoadFile reads and validates a YAML target list.
func LoadFile(path string) ([]models.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("targets: read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("targets: parse %s: %w", path, err)
	}
	for i := range f.Targets {
		f.Targets[i].Name = strings.TrimSpace(f.Targets[i].Name)
		f.Targets[i].URL = strings.TrimSpace(f.Targets[i].URL)
	}

	if err := Validate(f.Targets); err != nil {
		return nil, fmt.Errorf("targets: %s: %w", path, err)
	}
	return f.Targets, nil
}

// Validate checks that the list is non-empty, names are non-empty and
// unique, and every URL is an absolute http(s) URL.
func Validate(list []models.Target) error {
	if len(list) == 0 {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "no targets", nil)
	}

	seen := make(map[string]struct{}, len(list))
	for i, t := range list {
		if t.Name == "" {
			return models.NewScrapeError(models.ErrCodeInvalidInput,
				fmt.Sprintf("target %d: empty name", i), nil)
		}
		if _, dup := seen[t.Name]; dup {
			return models.NewScrapeError(models.ErrCodeInvalidInput,
				fmt.Sprintf("target %d: duplicate name %q", i, t.Name), nil)
		}
		seen[t.Name] = struct{}{}

		u, err := url.Parse(t.URL)
		if err != nil {
			return models.NewScrapeError(models.ErrCodeInvalidInput,
				fmt.Sprintf("target %q: invalid url", t.Name), err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return models.NewScrapeError(models.ErrCodeInvalidInput,
				fmt.Sprintf("target %q: url must be absolute http(s): %s", t.Name, t.URL), nil)
		}
	}
	return nil
}
