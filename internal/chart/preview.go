package chart

import (
	"bytes"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// previewWidth keeps previews inside the messaging platform's preview
// image limits.
const previewWidth = 240

// Preview downscales a rendered chart to a preview-sized PNG.
func Preview(png []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(png))
	if err != nil {
		return nil, errors.Wrap(err, "could not decode chart image")
	}

	resized := imaging.Resize(img, previewWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "could not encode preview image")
	}
	return buf.Bytes(), nil
}
