package export

import (
	"fmt"

	"github.com/go-git/go-billy/v6"
)

// WriteResults writes encoded documents into a directory on any billy
// filesystem. Tests use an in-memory filesystem; the CLI passes an
// OS-backed one.
func WriteResults(fs billy.Filesystem, dir string, results ...Result) error {
	if dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("while creating export directory %s: %w", dir, err)
		}
	}
	for _, r := range results {
		path := r.Filename
		if dir != "" {
			path = fs.Join(dir, r.Filename)
		}
		f, err := fs.Create(path)
		if err != nil {
			return fmt.Errorf("while creating export file %s: %w", path, err)
		}
		if _, err := f.Write(r.Data); err != nil {
			f.Close()
			return fmt.Errorf("while writing export file %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("while closing export file %s: %w", path, err)
		}
	}
	return nil
}
