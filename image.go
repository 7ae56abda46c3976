package bokeh

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// decodeScreenshot turns raw PNG bytes from the browser into an RGBA image.
func decodeScreenshot(data []byte) (*image.NRGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding screenshot: %v", ErrScreenshot, err)
	}
	return imaging.Clone(img), nil
}

// savePNG writes the image to path. An image with a zero dimension is
// rejected before any write attempt.
func savePNG(img image.Image, path string) error {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return ErrEmptyImage
	}

	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}
