package kolayxlsxpack

import (
	"io"
)

// Sink is the destination for a finished XLSX container. The archiving step
// streams the ZIP bytes into the sink and closes it when the package is
// complete. Implementations can target local files, S3, or any other store.
type Sink interface {
	io.Writer
	io.Closer
}

// Stats describes one completed save
type Stats struct {
	TotalRows     int64   // Data rows written across all sheets (headers excluded)
	TotalSheets   int     // Number of worksheets in the package
	FileSize      int64   // Bytes written to the sink
	Duration      float64 // Total duration in seconds
	RowsPerSecond float64 // Average rows per second
}

// Config holds configuration for a Workbook
type Config struct {
	// CompressionLevel sets the ZIP deflate level (0-9, default: 6).
	// 0 = store only, 9 = maximum compression.
	CompressionLevel int

	// StagingDir is the directory in which the staging tree is created.
	// Empty means next to the target file.
	StagingDir string

	// SheetNamePrefix names sheets registered with an empty name
	// (default: "Sheet", producing Sheet1, Sheet2, ...).
	SheetNamePrefix string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CompressionLevel: 6,
		SheetNamePrefix:  "Sheet",
	}
}
