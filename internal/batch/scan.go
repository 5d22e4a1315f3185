package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"batch-color-correction/internal/core"
	"batch-color-correction/internal/io"
)

// Scan lists the regular files directly inside dir, following symlinks.
// Files with a supported image extension are returned in images, other
// files in others. Directories, dangling links and special files are
// ignored. Both lists are sorted.
func Scan(dir string) (images, others []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read input directory: %w", core.ErrLocation, err)
	}

	for _, e := range entries {
		if !isRegular(dir, e) {
			continue
		}
		if io.IsSupported(e.Name()) {
			images = append(images, e.Name())
		} else {
			others = append(others, e.Name())
		}
	}

	sort.Strings(images)
	sort.Strings(others)
	return images, others, nil
}

func isRegular(dir string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Type().IsRegular()
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.Mode().IsRegular()
}

// FirstImage returns the path of the first image in dir by name
func FirstImage(dir string) (string, error) {
	images, _, err := Scan(dir)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", fmt.Errorf("no images in %s", dir)
	}
	return filepath.Join(dir, images[0]), nil
}

// PrepareOutput creates dir if needed and checks that files can be created
// in it. Any failure wraps core.ErrLocation.
func PrepareOutput(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create output directory: %w", core.ErrLocation, err)
	}

	scratch, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return fmt.Errorf("%w: output directory not writable: %w", core.ErrLocation, err)
	}
	name := scratch.Name()
	scratch.Close()
	os.Remove(name)

	return nil
}
