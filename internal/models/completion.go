package models

import (
	"fmt"
	"time"
)

// Completion records that a target index finished successfully for an
// output directory. The set of completions is the resume ledger.
type Completion struct {
	Key          string `badgerhold:"key"`
	OutputDir    string `badgerhold:"index"`
	Index        int
	URL          string
	ArtifactPath string
	RunID        string
	CompletedAt  time.Time
}

// CompletionKey builds the ledger key for an index within an output directory
func CompletionKey(outputDir string, index int) string {
	return fmt.Sprintf("%s#%06d", outputDir, index)
}
