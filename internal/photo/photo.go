// Package photo validates uploaded progress photos and normalises them to JPEG.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrEmpty       = errors.New("photo is empty")
	ErrTooLarge    = errors.New("photo exceeds the size limit")
	ErrUnsupported = errors.New("photo must be a JPEG, PNG or WebP image")
)

// allowed maps sniffed MIME types to the extension used in object keys.
var allowed = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Options controls normalisation. Zero values disable resizing and use
// quality 85.
type Options struct {
	MaxBytes     int64
	MaxDimension int
	JPEGQuality  int
}

// Image is a validated upload ready to be stored.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

func (i *Image) Size() int64 { return int64(len(i.Data)) }

func (i *Image) Reader() io.Reader { return bytes.NewReader(i.Data) }

// Sniff reads r (up to the size limit) and checks its content type without
// decoding pixels. It is cheap enough to run on every photo of a request
// before anything is written.
func Sniff(r io.Reader, opts Options) ([]byte, string, error) {
	limit := opts.MaxBytes
	var data []byte
	var err error
	if limit > 0 {
		data, err = io.ReadAll(io.LimitReader(r, limit+1))
	} else {
		data, err = io.ReadAll(r)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read photo: %w", err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmpty
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, "", ErrTooLarge
	}
	mt := mimetype.Detect(data)
	for ct := range allowed {
		if mt.Is(ct) {
			return data, ct, nil
		}
	}
	return nil, "", ErrUnsupported
}

// Normalize decodes a sniffed photo, applies EXIF orientation, fits it into
// MaxDimension and re-encodes it as JPEG.
func Normalize(data []byte, contentType string, opts Options) (*Image, error) {
	img, err := decode(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if d := opts.MaxDimension; d > 0 {
		b := img.Bounds()
		if b.Dx() > d || b.Dy() > d {
			img = imaging.Fit(img, d, d, imaging.Lanczos)
		}
	}
	q := opts.JPEGQuality
	if q <= 0 || q > 100 {
		q = 85
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	b := img.Bounds()
	return &Image{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Ext:         "jpg",
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

// Process is Sniff followed by Normalize.
func Process(r io.Reader, opts Options) (*Image, error) {
	data, ct, err := Sniff(r, opts)
	if err != nil {
		return nil, err
	}
	return Normalize(data, ct, opts)
}

// ExtFor returns the object key extension for a sniffed content type.
func ExtFor(contentType string) string {
	return allowed[contentType]
}

func decode(data []byte, contentType string) (image.Image, error) {
	if contentType == "image/webp" {
		return webp.Decode(bytes.NewReader(data))
	}
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
}
