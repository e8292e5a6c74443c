package kolayxlsxpack

import (
	"compress/flate"
	"io"
)

// newFlateWriter creates a flate writer at the given compression level
func newFlateWriter(w io.Writer, level int) (io.WriteCloser, error) {
	return flate.NewWriter(w, level)
}
