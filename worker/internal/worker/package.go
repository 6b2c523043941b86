package worker

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"sort"
)

// BuildArchive writes a zip at dst containing the given files, keyed by
// archive entry name. Entries are written in sorted order so the archive
// bytes are stable for a given input set.
func BuildArchive(dst string, entries map[string]string) error {
	if len(entries) == 0 {
		return fmt.Errorf("nothing to archive")
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		src, err := os.Open(entries[name])
		if err != nil {
			zw.Close()
			return fmt.Errorf("failed to open %s: %w", entries[name], err)
		}

		w, err := zw.Create(name)
		if err != nil {
			src.Close()
			zw.Close()
			return fmt.Errorf("failed to add archive entry %s: %w", name, err)
		}
		if _, err := io.Copy(w, src); err != nil {
			src.Close()
			zw.Close()
			return fmt.Errorf("failed to write archive entry %s: %w", name, err)
		}
		src.Close()
	}

	return zw.Close()
}
