// Image buffer validation and metadata for the correction pipeline
package core

import (
	"fmt"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
)

// MaxDimension bounds either side of an accepted image
const MaxDimension = 16384

// ImageMetadata contains image information
type ImageMetadata struct {
	Width    int
	Height   int
	Channels int
	Type     gocv.MatType
	Format   string
}

// MetadataOf describes mat as loaded from path
func MetadataOf(mat gocv.Mat, path string) ImageMetadata {
	return ImageMetadata{
		Width:    mat.Cols(),
		Height:   mat.Rows(),
		Channels: mat.Channels(),
		Type:     mat.Type(),
		Format:   getFormatFromPath(path),
	}
}

// ValidateImage checks that mat is a usable BGR buffer: non-empty,
// three 8-bit channels and within MaxDimension on both sides.
func ValidateImage(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("%w: image is empty", ErrInvalidImage)
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("%w: invalid dimensions: %dx%d", ErrInvalidImage, mat.Cols(), mat.Rows())
	}

	if mat.Channels() != 3 {
		return fmt.Errorf("%w: unsupported channel count: %d", ErrInvalidImage, mat.Channels())
	}

	if mat.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: unsupported mat type: %v", ErrInvalidImage, mat.Type())
	}

	if mat.Cols() > MaxDimension || mat.Rows() > MaxDimension {
		return fmt.Errorf("%w: image too large: %dx%d (max: %d)", ErrInvalidImage, mat.Cols(), mat.Rows(), MaxDimension)
	}

	return nil
}

// SameShape reports whether two buffers have identical geometry and type
func SameShape(a, b gocv.Mat) bool {
	return a.Rows() == b.Rows() &&
		a.Cols() == b.Cols() &&
		a.Channels() == b.Channels() &&
		a.Type() == b.Type()
}

func getFormatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "unknown"
	}
	return ext
}
