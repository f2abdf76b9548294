package models

import "encoding/json"

// ScrapeResult is the outcome for a single target. It is either a success
// carrying the extracted article or a failure carrying an error message;
// build it with NewSuccess or NewFailure.
type ScrapeResult struct {
	Name    string
	Success bool

	// Populated only when Success is true.
	Title      string
	Content    string
	CodeBlocks []string

	// RawLength is the rune count of the landmark text before trimming,
	// reported in progress output and never serialized.
	RawLength int

	// ContentHTML is the landmark's inner HTML. It is only captured for the
	// markdown digest and never serialized.
	ContentHTML string

	// Populated only when Success is false.
	Error     string
	ErrorCode string
}

// NewSuccess builds a success result. A nil codeBlocks slice is stored as
// an empty one so the JSON output always carries an array.
func NewSuccess(name, title, content string, codeBlocks []string) ScrapeResult {
	if codeBlocks == nil {
		codeBlocks = []string{}
	}
	return ScrapeResult{
		Name:       name,
		Success:    true,
		Title:      title,
		Content:    content,
		CodeBlocks: codeBlocks,
	}
}

// NewFailure builds a failure result from err.
func NewFailure(name string, err error) ScrapeResult {
	return ScrapeResult{
		Name:      name,
		Success:   false,
		Error:     err.Error(),
		ErrorCode: CodeOf(err),
	}
}

type successJSON struct {
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	CodeBlocks []string `json:"code_blocks"`
	Success    bool     `json:"success"`
}

type failureJSON struct {
	Name    string `json:"name"`
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

// MarshalJSON emits only the keys of the result's variant. HTML escaping
// is left to the outer encoder; WriteJSON disables it.
func (r ScrapeResult) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(failureJSON{Name: r.Name, Error: r.Error})
	}
	blocks := r.CodeBlocks
	if blocks == nil {
		blocks = []string{}
	}
	return json.Marshal(successJSON{
		Name:       r.Name,
		Title:      r.Title,
		Content:    r.Content,
		CodeBlocks: blocks,
		Success:    true,
	})
}
