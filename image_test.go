package bokeh

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestSavePNG_RejectsEmptyImage(t *testing.T) {
	tests := []struct {
		name string
		rect image.Rectangle
	}{
		{name: "zero width", rect: image.Rect(0, 0, 0, 10)},
		{name: "zero height", rect: image.Rect(0, 0, 10, 0)},
		{name: "zero both", rect: image.Rect(0, 0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "empty.png")
			err := savePNG(image.NewNRGBA(tt.rect), out)
			if !errors.Is(err, ErrEmptyImage) {
				t.Fatalf("expected ErrEmptyImage, got %v", err)
			}
			// Rejected before any write attempt
			if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
				t.Errorf("file %s was created for an empty image", out)
			}
		})
	}
}

func TestSavePNG_WritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ok.png")
	if err := savePNG(image.NewNRGBA(image.Rect(0, 0, 2, 2)), out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("opening written PNG: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Errorf("expected 2x2 image, got %v", img.Bounds())
	}
}

func TestDecodeScreenshot(t *testing.T) {
	t.Run("valid PNG decodes to RGBA", func(t *testing.T) {
		data := encodeTestPNG(t, 3, 2)
		img, err := decodeScreenshot(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
			t.Errorf("expected 3x2 image, got %v", img.Bounds())
		}
	})

	t.Run("garbage bytes rejected", func(t *testing.T) {
		_, err := decodeScreenshot([]byte("not a png"))
		if !errors.Is(err, ErrScreenshot) {
			t.Fatalf("expected ErrScreenshot, got %v", err)
		}
	})
}
