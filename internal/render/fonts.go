package render

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Measurer reports the advance width of a string in CSS pixels.
type Measurer interface {
	Width(s string, style TextStyle) float64
}

// Fonts caches font faces per style and scale. One canvas pixel is one
// point at 72 DPI, so face sizes are given directly in CSS pixels.
type Fonts struct {
	regular *sfnt.Font
	bold    *sfnt.Font
	mono    *sfnt.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	bold bool
	mono bool
	size float64
}

var (
	defaultFonts     *Fonts
	defaultFontsOnce sync.Once
	defaultFontsErr  error
)

// DefaultFonts returns the shared Go font set.
func DefaultFonts() (*Fonts, error) {
	defaultFontsOnce.Do(func() {
		defaultFonts, defaultFontsErr = NewGoFonts()
	})
	return defaultFonts, defaultFontsErr
}

// NewGoFonts returns a fresh font set over the Go fonts. Faces are not
// safe for concurrent drawing, so each rasterization run takes its own set.
func NewGoFonts() (*Fonts, error) {
	return NewFonts(goregular.TTF, gobold.TTF, gomono.TTF)
}

// NewFonts parses the regular, bold and monospace TrueType fonts.
func NewFonts(regular, bold, mono []byte) (*Fonts, error) {
	r, err := opentype.Parse(regular)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	b, err := opentype.Parse(bold)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	m, err := opentype.Parse(mono)
	if err != nil {
		return nil, fmt.Errorf("parse monospace font: %w", err)
	}
	return &Fonts{regular: r, bold: b, mono: m, faces: make(map[faceKey]font.Face)}, nil
}

// Face returns the face for style, scaled by scale (1 for layout, the
// oversampling factor for rasterization).
func (f *Fonts) Face(style TextStyle, scale float64) (font.Face, error) {
	key := faceKey{bold: style.Bold, mono: style.Mono, size: style.Size * scale}

	f.mu.Lock()
	defer f.mu.Unlock()

	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	src := f.regular
	switch {
	case style.Mono:
		src = f.mono
	case style.Bold:
		src = f.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    key.size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	f.faces[key] = face
	return face, nil
}

// Width implements Measurer. A face error falls back to a fixed
// per-rune estimate so layout never fails on measurement.
func (f *Fonts) Width(s string, style TextStyle) float64 {
	face, err := f.Face(style, 1)
	if err != nil {
		return float64(len([]rune(s))) * style.Size * 0.55
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return float64(font.MeasureString(face, s)) / 64
}
