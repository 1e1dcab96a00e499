package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/png" // register png decoding for uploaded screenshots
)

// jpegQuality matches what the OCR endpoint is tuned for.
const jpegQuality = 95

// PrepareImage decodes an uploaded image and re-encodes it as JPEG.
// The OCR call always sends image/jpeg regardless of the upload format,
// which also normalizes away alpha channels and palettes.
func PrepareImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
