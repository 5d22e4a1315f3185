// Image file decoding and atomic encoding
package io

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"batch-color-correction/internal/core"
)

// SupportedExtensions are the lower-case extensions treated as images
var SupportedExtensions = []string{".png", ".jpg", ".jpeg", ".bmp"}

// ImageLoader handles image file operations
type ImageLoader struct {
	logger *logrus.Logger
}

func NewImageLoader(logger *logrus.Logger) *ImageLoader {
	return &ImageLoader{
		logger: logger,
	}
}

// IsSupported reports whether name carries an image extension (any case)
func IsSupported(name string) bool {
	return lo.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(name)))
}

// LoadImage decodes path into a BGR buffer. Every failure, including an
// unreadable or empty file, wraps core.ErrDecode.
func (il *ImageLoader) LoadImage(path string) (gocv.Mat, error) {
	il.logger.WithField("file", path).Debug("Loading image")

	if !IsSupported(path) {
		return gocv.NewMat(), fmt.Errorf("%w: unsupported image format: %s", core.ErrDecode, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %w", core.ErrDecode, err)
	}
	if len(data) == 0 {
		return gocv.NewMat(), fmt.Errorf("%w: zero-byte file: %s", core.ErrDecode, path)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("%w: %s: %w", core.ErrDecode, path, err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("%w: failed to load image: %s", core.ErrDecode, path)
	}

	if err := core.ValidateImage(mat); err != nil {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("%w: %s: %w", core.ErrDecode, path, err)
	}

	meta := core.MetadataOf(mat, path)
	il.logger.WithFields(logrus.Fields{
		"file":     path,
		"width":    meta.Width,
		"height":   meta.Height,
		"channels": meta.Channels,
		"format":   meta.Format,
	}).Debug("Image loaded successfully")

	return mat, nil
}

// SaveImage encodes mat in the format named by path's extension and
// publishes it atomically: the bytes go to a hidden temporary file in the
// same directory which is renamed onto path only after a successful write.
// Every failure wraps core.ErrEncode and leaves nothing at path.
func (il *ImageLoader) SaveImage(mat gocv.Mat, path string) error {
	il.logger.WithField("file", path).Debug("Saving image")

	if mat.Empty() {
		return fmt.Errorf("%w: cannot save empty image", core.ErrEncode)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !IsSupported(path) {
		return fmt.Errorf("%w: unsupported image format: %s", core.ErrEncode, path)
	}

	buf, err := gocv.IMEncode(gocv.FileExt(ext), mat)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", core.ErrEncode, path, err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	if len(data) == 0 {
		return fmt.Errorf("%w: encoder produced no data for %s", core.ErrEncode, path)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+".tmp"+ext)
	if err := writeFileSync(tmp, data); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %w", core.ErrEncode, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: publish %s: %w", core.ErrEncode, path, err)
	}

	il.logger.WithFields(logrus.Fields{
		"file":   path,
		"width":  mat.Cols(),
		"height": mat.Rows(),
		"bytes":  len(data),
	}).Debug("Image saved successfully")

	return nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
