// Package media cleans image extras before they are written as report assets.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
)

// Clean re-encodes PNG and JPEG data so EXIF, GPS and text chunks do not
// end up in the report. The declared mime type is checked against the
// bytes; other formats (GIF, SVG, video) are returned unchanged.
func Clean(data []byte, mimeType string) ([]byte, error) {
	sniffed := http.DetectContentType(data)
	switch {
	case isJPEG(mimeType) && sniffed == "image/jpeg":
		return reencode(data, func(buf *bytes.Buffer, img image.Image) error {
			return jpeg.Encode(buf, img, &jpeg.Options{Quality: 92})
		})
	case mimeType == "image/png" && sniffed == "image/png":
		return reencode(data, func(buf *bytes.Buffer, img image.Image) error {
			return png.Encode(buf, img)
		})
	case isJPEG(mimeType) || mimeType == "image/png":
		return nil, fmt.Errorf("content is %s, declared %s", sniffed, mimeType)
	default:
		return data, nil
	}
}

func isJPEG(mimeType string) bool {
	return mimeType == "image/jpeg" || mimeType == "image/jpg"
}

func reencode(data []byte, encode func(*bytes.Buffer, image.Image) error) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
