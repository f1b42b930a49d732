package device

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
)

type OCRMode int

const (
	OCRText OCRMode = iota
	OCRDigits
)

type OCR interface {
	Read(ctx context.Context, img image.Image, mode OCRMode) (string, error)
}

// Tesseract runs the tesseract CLI on a temporary PNG.
type Tesseract struct {
	runner Runner
	path   string
	tmpDir string
}

func NewTesseract(runner Runner, path, tmpDir string) *Tesseract {
	return &Tesseract{runner: runner, path: path, tmpDir: tmpDir}
}

func (t *Tesseract) Read(ctx context.Context, img image.Image, mode OCRMode) (string, error) {
	if err := os.MkdirAll(t.tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating ocr dir: %w", err)
	}

	f, err := os.CreateTemp(t.tmpDir, "ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("error creating ocr input: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		f.Close()
		return "", fmt.Errorf("error encoding ocr input: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("error writing ocr input: %w", err)
	}

	args := []string{name, "stdout"}
	if mode == OCRDigits {
		args = append(args, "--psm", "6", "digits")
	}

	out, err := t.runner.Run(ctx, t.path, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return out, nil
}

func crop(img image.Image, r image.Rectangle) image.Image {
	return imaging.Crop(img, r)
}

// binarize converts img to grayscale and maps pixels brighter than
// threshold to white and everything else to black.
func binarize(img image.Image, threshold uint8) image.Image {
	gray := imaging.Grayscale(img)
	return imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		if c.R > threshold {
			return color.NRGBA{R: 255, G: 255, B: 255, A: c.A}
		}
		return color.NRGBA{A: c.A}
	})
}

var digitsRe = regexp.MustCompile(`\d+`)

func extractDigits(text string) string {
	return strings.Join(digitsRe.FindAllString(text, -1), "")
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func saveDebug(dir, name string, img image.Image) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return imaging.Save(img, filepath.Join(dir, name))
}
