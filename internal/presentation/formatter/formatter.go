package formatter

import (
	"fmt"
	"io"
)

// Formats lists the accepted --output values
var Formats = []string{"table", "json", "csv", "summary"}

// New returns the formatter for an output format name
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "", "table":
		return NewTableFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "summary":
		return NewSummaryFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %v)", format, Formats)
	}
}
