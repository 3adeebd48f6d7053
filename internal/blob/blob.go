// Package blob turns raw image files into the two payloads stored with a
// photo: a full image bounded to MaxDimension and a thumbnail bounded to
// ThumbnailDimension, both re-encoded as JPEG.
//
// Processing is deterministic for identical input and settings, and an
// image already within bounds is never scaled again.
package blob

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	// Registered decoders for Process.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Default bounds and encoder settings.
const (
	DefaultMaxDimension       = 1280
	DefaultThumbnailDimension = 200
	DefaultQuality            = 80
	DefaultThumbnailQuality   = 70
	DefaultMaxInputBytes      = 40 << 20
)

// OutputMIMEType is the MIME type of every payload Process produces.
const OutputMIMEType = "image/jpeg"

// DecodeError reports input that could not be interpreted as an image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Result holds the processed payloads. Width and Height describe Full.
type Result struct {
	Full      []byte
	Thumbnail []byte
	Width     int
	Height    int
	MIMEType  string
}

// Processor holds the bounds and quality settings.
type Processor struct {
	MaxDimension       int
	ThumbnailDimension int
	Quality            int
	ThumbnailQuality   int
	MaxInputBytes      int64
}

// NewProcessor returns a Processor with the default settings.
func NewProcessor() *Processor {
	return &Processor{
		MaxDimension:       DefaultMaxDimension,
		ThumbnailDimension: DefaultThumbnailDimension,
		Quality:            DefaultQuality,
		ThumbnailQuality:   DefaultThumbnailQuality,
		MaxInputBytes:      DefaultMaxInputBytes,
	}
}

// Process decodes r, applies its EXIF orientation, flattens transparency on
// white and produces the bounded full image and thumbnail.
func (p *Processor) Process(r io.Reader) (*Result, error) {
	limit := p.MaxInputBytes
	if limit <= 0 {
		limit = DefaultMaxInputBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, &DecodeError{Err: fmt.Errorf("input exceeds %d bytes", limit)}
	}
	if len(data) == 0 {
		return nil, &DecodeError{Err: errors.New("empty input")}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	img := flatten(orient(src, orientation(data)))
	full := fitWithin(img, p.MaxDimension)
	thumb := fitWithin(full, p.ThumbnailDimension)

	fullBytes, err := encodeJPEG(full, p.Quality)
	if err != nil {
		return nil, err
	}
	thumbBytes, err := encodeJPEG(thumb, p.ThumbnailQuality)
	if err != nil {
		return nil, err
	}

	b := full.Bounds()
	return &Result{
		Full:      fullBytes,
		Thumbnail: thumbBytes,
		Width:     b.Dx(),
		Height:    b.Dy(),
		MIMEType:  OutputMIMEType,
	}, nil
}

// fitWithin scales img down so neither side exceeds bound, keeping the
// aspect ratio. Images already within bound are returned as is.
func fitWithin(img image.Image, bound int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if bound <= 0 || (w <= bound && h <= bound) {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = bound
		nh = max(1, (h*bound+w/2)/w)
	} else {
		nh = bound
		nw = max(1, (w*bound+h/2)/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// flatten composites img over an opaque white background.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
