package models

import "time"

// RenderedDocument is the markup of a target as rendered by the browser.
// It only lives between fetch and write.
type RenderedDocument struct {
	Target     Target        `json:"target"`
	HTML       string        `json:"-"`
	FinalURL   string        `json:"final_url"`
	Title      string        `json:"title"`
	RenderedAt time.Time     `json:"rendered_at"`
	Elapsed    time.Duration `json:"elapsed"`
}

// ArtifactFile describes a rendered document persisted to the output directory
type ArtifactFile struct {
	Index     int       `json:"index"`
	Path      string    `json:"path"`
	Bytes     int       `json:"bytes"`
	WrittenAt time.Time `json:"written_at"`
}
