// Package imaging normalizes uploaded photo evidence. Images are decoded
// from JPEG, PNG, GIF, or WebP, re-encoded as JPEG with the longest edge
// capped at 1600px, and a 400px thumbnail is generated for previews.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	MaxDimension   = 1600
	ThumbDimension = 400

	originalQuality = 85
	thumbQuality    = 80
)

// Error codes for failed uploads.
const (
	CodeEmptyUpload  = "empty_upload"
	CodeInvalidImage = "invalid_image"
	CodeStorageError = "storage_error"
)

// ProcessingError describes why an uploaded image was rejected.
type ProcessingError struct {
	Code    string
	Message string
}

func (e *ProcessingError) Error() string { return e.Message }

func processingErrorf(code, format string, args ...interface{}) error {
	return &ProcessingError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Result holds the stored file paths for a processed upload.
type Result struct {
	PhotoPath string
	ThumbPath string
}

// Processor writes normalized photos and thumbnails beneath a base
// directory, in uploads/ and thumbs/ respectively.
type Processor struct {
	uploadsDir string
	thumbsDir  string
}

// NewProcessor returns a Processor rooted at baseDir.
func NewProcessor(baseDir string) *Processor {
	return &Processor{
		uploadsDir: filepath.Join(baseDir, "uploads"),
		thumbsDir:  filepath.Join(baseDir, "thumbs"),
	}
}

// Process decodes raw image bytes, persists the normalized photo and its
// thumbnail, and returns their paths. Partially written files are removed
// on failure.
func (p *Processor) Process(raw []byte) (*Result, error) {
	if len(raw) == 0 {
		return nil, processingErrorf(CodeEmptyUpload, "uploaded file is empty")
	}

	img, err := decode(raw)
	if err != nil {
		return nil, processingErrorf(CodeInvalidImage, "uploaded file is not a recognized image")
	}

	if err := os.MkdirAll(p.uploadsDir, 0o755); err != nil {
		return nil, processingErrorf(CodeStorageError, "unable to prepare upload directories")
	}
	if err := os.MkdirAll(p.thumbsDir, 0o755); err != nil {
		return nil, processingErrorf(CodeStorageError, "unable to prepare upload directories")
	}

	fileID := uuid.NewString()
	photoPath := filepath.Join(p.uploadsDir, fileID+".jpg")
	thumbPath := filepath.Join(p.thumbsDir, fileID+".jpg")

	resized := Resize(img, MaxDimension)
	if err := writeJPEG(photoPath, resized, originalQuality); err != nil {
		cleanup(photoPath)
		return nil, processingErrorf(CodeStorageError, "unable to process uploaded image")
	}

	thumb := Resize(resized, ThumbDimension)
	if err := writeJPEG(thumbPath, thumb, thumbQuality); err != nil {
		cleanup(photoPath, thumbPath)
		return nil, processingErrorf(CodeStorageError, "unable to process uploaded image")
	}

	return &Result{PhotoPath: photoPath, ThumbPath: thumbPath}, nil
}

func decode(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err == nil {
		return img, nil
	}
	// webp is not registered with image.Decode.
	if img, werr := webp.Decode(bytes.NewReader(raw)); werr == nil {
		return img, nil
	}
	return nil, err
}

// Resize scales img down so its longest edge is at most maxDim, preserving
// aspect ratio. Images already within bounds are returned unchanged.
func Resize(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDim && height <= maxDim {
		return img
	}

	newWidth, newHeight := width, height
	if width >= height {
		newWidth = maxDim
		newHeight = height * maxDim / width
	} else {
		newHeight = maxDim
		newWidth = width * maxDim / height
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func writeJPEG(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
}

func cleanup(paths ...string) {
	for _, path := range paths {
		_ = os.Remove(path)
	}
}
