package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"strings"
	"testing"
)

func testImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestResizeLandscape(t *testing.T) {
	resized := Resize(testImage(3200, 1600), MaxDimension)
	bounds := resized.Bounds()
	if bounds.Dx() != 1600 || bounds.Dy() != 800 {
		t.Fatalf("resized to %dx%d, want 1600x800", bounds.Dx(), bounds.Dy())
	}
}

func TestResizePortrait(t *testing.T) {
	resized := Resize(testImage(800, 3200), MaxDimension)
	bounds := resized.Bounds()
	if bounds.Dx() != 400 || bounds.Dy() != 1600 {
		t.Fatalf("resized to %dx%d, want 400x1600", bounds.Dx(), bounds.Dy())
	}
}

func TestResizeWithinBoundsUnchanged(t *testing.T) {
	original := testImage(640, 480)
	if resized := Resize(original, MaxDimension); resized != original {
		t.Fatal("image within bounds should be returned unchanged")
	}
}

func TestProcess(t *testing.T) {
	processor := NewProcessor(t.TempDir())
	result, err := processor.Process(encodeJPEG(t, testImage(2000, 1000)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	for _, path := range []string{result.PhotoPath, result.ThumbPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", path)
		}
		if !strings.HasSuffix(path, ".jpg") {
			t.Fatalf("%s is not a jpg", path)
		}
	}

	photo, err := os.Open(result.PhotoPath)
	if err != nil {
		t.Fatalf("open photo: %v", err)
	}
	defer photo.Close()
	img, _, err := image.Decode(photo)
	if err != nil {
		t.Fatalf("decode photo: %v", err)
	}
	if img.Bounds().Dx() != 1600 || img.Bounds().Dy() != 800 {
		t.Fatalf("photo is %dx%d, want 1600x800", img.Bounds().Dx(), img.Bounds().Dy())
	}

	thumb, err := os.Open(result.ThumbPath)
	if err != nil {
		t.Fatalf("open thumb: %v", err)
	}
	defer thumb.Close()
	timg, _, err := image.Decode(thumb)
	if err != nil {
		t.Fatalf("decode thumb: %v", err)
	}
	if timg.Bounds().Dx() != 400 || timg.Bounds().Dy() != 200 {
		t.Fatalf("thumb is %dx%d, want 400x200", timg.Bounds().Dx(), timg.Bounds().Dy())
	}
}

func TestProcessPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(100, 100)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	processor := NewProcessor(t.TempDir())
	if _, err := processor.Process(buf.Bytes()); err != nil {
		t.Fatalf("Process png: %v", err)
	}
}

func TestProcessEmptyUpload(t *testing.T) {
	processor := NewProcessor(t.TempDir())
	_, err := processor.Process(nil)
	var pe *ProcessingError
	if !errors.As(err, &pe) || pe.Code != CodeEmptyUpload {
		t.Fatalf("err = %v, want %s", err, CodeEmptyUpload)
	}
}

func TestProcessInvalidImage(t *testing.T) {
	processor := NewProcessor(t.TempDir())
	_, err := processor.Process([]byte("definitely not an image"))
	var pe *ProcessingError
	if !errors.As(err, &pe) || pe.Code != CodeInvalidImage {
		t.Fatalf("err = %v, want %s", err, CodeInvalidImage)
	}
}
