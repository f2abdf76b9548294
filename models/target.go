package models

// Target is one documentation page to harvest.
type Target struct {
	// Name identifies the target and becomes the result key. Unique per run.
	Name string `json:"name" yaml:"name"`

	// URL is the absolute http(s) address of the page.
	URL string `json:"url" yaml:"url"`
}
