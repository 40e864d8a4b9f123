// Package export turns laid-out report pages into a single A4 PDF: every
// page is rasterized on its own and the images are assembled one per PDF
// page.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/verustcode/reportdesk/internal/render"
)

// Rasterizer names
const (
	RasterizerChrome = "chrome"
	RasterizerNative = "native"
)

// DefaultScale is the oversampling factor applied to the 794x1123 canvas.
const DefaultScale = 2.0

// Raster is one captured page, PNG encoded.
type Raster struct {
	PNG    []byte
	Width  int
	Height int
}

// Rasterizer captures pages as images.
type Rasterizer interface {
	// Name returns the rasterizer name used in logs and metrics.
	Name() string
	// Open prepares a capture session over pages.
	Open(ctx context.Context, pages []render.Page, scale float64) (Session, error)
}

// Session captures the pages it was opened with, one at a time.
type Session interface {
	// Capture rasterizes page index (0-based).
	Capture(ctx context.Context, index int) (*Raster, error)
	Close() error
}

// RasterizerConfig selects and configures a Rasterizer.
type RasterizerConfig struct {
	Kind   string
	Chrome ChromeOptions
	Images *ImageLoader
}

// NewRasterizer returns the rasterizer named by cfg.Kind.
func NewRasterizer(cfg RasterizerConfig) (Rasterizer, error) {
	images := cfg.Images
	if images == nil {
		images = NewImageLoader(ImageLoaderOptions{})
	}
	switch strings.ToLower(cfg.Kind) {
	case RasterizerNative:
		return NewNativeRasterizer(images), nil
	case RasterizerChrome, "":
		return NewChromeRasterizer(cfg.Chrome, images), nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q (supported: chrome, native)", cfg.Kind)
	}
}
