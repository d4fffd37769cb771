package fire

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Extra formats beyond the ones imaging registers.
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

var errEmptyImage = errors.New("empty image data")

// Decode decodes JPEG, PNG, GIF, BMP, TIFF or WebP bytes, applying EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errEmptyImage
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
