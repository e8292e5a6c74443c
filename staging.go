package kolayxlsxpack

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// stagingDir is the on-disk layout the package parts are materialized into
// before archiving. It is created exclusively for one save and removed on
// every exit path.
type stagingDir struct {
	root string
}

// newStagingDir creates the staging tree at root. A pre-existing path at
// root is an error: silently merging into it could archive foreign files
// into the container.
func newStagingDir(root string) (*stagingDir, error) {
	if _, err := os.Lstat(root); err == nil {
		return nil, fmt.Errorf("staging path %s already exists", root)
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &stagingDir{root: root}, nil
}

// WritePart writes one package part under the staging root. name uses
// forward slashes ("xl/worksheets/sheet1.xml"); parent directories are
// created as needed.
func (st *stagingDir) WritePart(name string, data []byte) error {
	fn := filepath.Join(st.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
		return err
	}
	return os.WriteFile(fn, data, 0o644)
}

// ArchiveTo walks the staging tree and writes every file into a ZIP stream
// on out, using paths relative to the staging root as entry names and
// deflate at the given level. Returns the number of bytes written to out.
func (st *stagingDir) ArchiveTo(out io.Writer, level int) (int64, error) {
	counted := &countingWriter{w: out}
	zw := zip.NewWriter(counted)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return newFlateWriter(w, level)
	})

	err := filepath.WalkDir(st.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(st.root, path)
		if err != nil {
			return err
		}
		entry, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(entry, src)
		return err
	})
	if err != nil {
		_ = zw.Close()
		return counted.n, err
	}
	if err := zw.Close(); err != nil {
		return counted.n, err
	}
	return counted.n, nil
}

// Remove deletes the staging tree. Best-effort: callers defer it so cleanup
// runs on success and failure alike.
func (st *stagingDir) Remove() {
	_ = os.RemoveAll(st.root)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
