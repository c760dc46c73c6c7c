package models

// RunState is the state of the crawl loop
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateAborted   RunState = "aborted"
)

// Failure is a per-target error that was logged and skipped
type Failure struct {
	Index int       `json:"index"`
	URL   string    `json:"url"`
	Kind  ErrorKind `json:"kind"`
	Error string    `json:"error"`
}

// Report is what a crawl run hands back to its caller
type Report struct {
	RunID     string    `json:"run_id"`
	State     RunState  `json:"state"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Failures  []Failure `json:"failures,omitempty"`
	Artifacts []string  `json:"artifacts,omitempty"`
}
