package parser

import (
	"github.com/IshaanNene/escrutinio/internal/types"
)

// Extractor turns a captured results page into one record.
type Extractor interface {
	// Extract returns the record for a page. Any structural failure is an
	// error; a partial record is never returned.
	Extract(page *types.Page) (*Result, error)
}

// Result is an extracted record plus what the extractor had to skip.
type Result struct {
	Record *types.Record

	// Unmatched holds summary labels that no known phrase matched.
	Unmatched []string

	// SkippedRows counts summary and party rows dropped for missing parts.
	SkippedRows int

	// Parties counts party rows that produced a vote field.
	Parties int
}
