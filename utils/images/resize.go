package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	"scribe/config"
)

// ResizeCover adjusts img to the configured cover box. Mode none returns
// the image untouched, keepAR fits it into the box and stretch fills the
// box exactly.
func ResizeCover(img image.Image, mode config.ImageResizeMode, width, height int) image.Image {
	switch mode {
	case config.ImageResizeModeKeepAR:
		return imaging.Fit(img, width, height, imaging.Lanczos)
	case config.ImageResizeModeStretch:
		return imaging.Resize(img, width, height, imaging.Lanczos)
	default:
		return img
	}
}

// Scale resizes img by factor keeping aspect ratio. Factor 1 or less than
// zero leaves the image untouched.
func Scale(img image.Image, factor float64) image.Image {
	if factor <= 0 || factor == 1.0 {
		return img
	}
	w := int(float64(img.Bounds().Dx()) * factor)
	if w < 1 {
		w = 1
	}
	return imaging.Resize(img, w, 0, imaging.Lanczos)
}

// EncodeJPEG serializes img with the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("unable to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeImage parses raster image data in any registered format.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to decode image: %w", err)
	}
	return img, nil
}
