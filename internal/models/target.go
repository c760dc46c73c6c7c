package models

// Target is one entry of the crawl list. Index is the 1-based position in
// the list and, with URL, identifies the target for the whole run.
type Target struct {
	Index    int                    `json:"index"`
	URL      string                 `json:"url" validate:"required"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
