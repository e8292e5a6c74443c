package kolayxlsxpack

import (
	"os"
)

// FileSink writes the finished package to a local file
type FileSink struct {
	file *os.File
	path string
}

// NewFileSink creates a FileSink writing to the given path, truncating any
// existing file.
func NewFileSink(path string) (*FileSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: file, path: path}, nil
}

func (fs *FileSink) Write(p []byte) (int, error) {
	return fs.file.Write(p)
}

func (fs *FileSink) Close() error {
	if fs.file == nil {
		return nil
	}
	err := fs.file.Close()
	fs.file = nil
	return err
}

// Discard closes the sink and deletes the file. Used to avoid leaving a
// half-written container behind after a failed save.
func (fs *FileSink) Discard() error {
	_ = fs.Close()
	return os.Remove(fs.path)
}

// Path returns the destination file path
func (fs *FileSink) Path() string {
	return fs.path
}
