package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/verustcode/reportdesk/internal/render"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/logger"
)

var (
	colorText   = color.RGBA{0x1f, 0x23, 0x28, 0xff}
	colorBorder = color.RGBA{0xd1, 0xd5, 0xdb, 0xff}
	colorHead   = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

// NativeRasterizer draws pages in process with the Go fonts. It needs no
// browser and produces the same line breaks the layout measured.
type NativeRasterizer struct {
	images *ImageLoader
}

// NewNativeRasterizer returns a NativeRasterizer.
func NewNativeRasterizer(images *ImageLoader) *NativeRasterizer {
	return &NativeRasterizer{images: images}
}

// Name implements Rasterizer.
func (r *NativeRasterizer) Name() string {
	return RasterizerNative
}

// Open implements Rasterizer.
func (r *NativeRasterizer) Open(ctx context.Context, pages []render.Page, scale float64) (Session, error) {
	if scale <= 0 {
		scale = DefaultScale
	}
	fonts, err := render.NewGoFonts()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRasterize, "failed to load fonts", err)
	}
	return &nativeSession{images: r.images.NewSet(), fonts: fonts, pages: pages, scale: scale}, nil
}

type nativeSession struct {
	images *ImageSet
	fonts  *render.Fonts
	pages  []render.Page
	scale  float64
}

func (s *nativeSession) Close() error {
	s.images.Release()
	return nil
}

// Capture implements Session.
func (s *nativeSession) Capture(ctx context.Context, index int) (*Raster, error) {
	if index < 0 || index >= len(s.pages) {
		return nil, errors.ErrIndex("page", index, len(s.pages))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := int(math.Round(render.PageWidth * s.scale))
	h := int(math.Round(render.PageHeight * s.scale))
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, xdraw.Src)

	for _, region := range s.pages[index].Regions {
		var err error
		switch region.Kind {
		case render.RegionRule:
			s.fill(canvas, region.Box, colorBorder)
		case render.RegionImage:
			err = s.drawImage(ctx, canvas, region)
		case render.RegionTable:
			err = s.drawTable(canvas, region)
		case render.RegionList:
			var lines []string
			for _, item := range region.Items {
				lines = append(lines, item...)
			}
			err = s.drawLines(canvas, region.Box, lines, region.Style)
		default:
			err = s.drawLines(canvas, region.Box, region.Lines, region.Style)
		}
		if err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRasterize, fmt.Sprintf("failed to encode page %d", index+1), err)
	}
	return &Raster{PNG: buf.Bytes(), Width: w, Height: h}, nil
}

// rect converts a canvas box to device pixels.
func (s *nativeSession) rect(b render.Box) image.Rectangle {
	return image.Rect(
		int(math.Round(b.X*s.scale)),
		int(math.Round(b.Y*s.scale)),
		int(math.Round((b.X+b.W)*s.scale)),
		int(math.Round((b.Y+b.H)*s.scale)),
	)
}

func (s *nativeSession) fill(dst *image.RGBA, b render.Box, c color.Color) {
	r := s.rect(b)
	if r.Dy() == 0 {
		r.Max.Y = r.Min.Y + 1
	}
	xdraw.Draw(dst, r, image.NewUniform(c), image.Point{}, xdraw.Src)
}

func (s *nativeSession) stroke(dst *image.RGBA, b render.Box, c color.Color) {
	t := 1 / s.scale
	s.fill(dst, render.Box{X: b.X, Y: b.Y, W: b.W, H: t}, c)
	s.fill(dst, render.Box{X: b.X, Y: b.Bottom() - t, W: b.W, H: t}, c)
	s.fill(dst, render.Box{X: b.X, Y: b.Y, W: t, H: b.H}, c)
	s.fill(dst, render.Box{X: b.X + b.W - t, Y: b.Y, W: t, H: b.H}, c)
}

// drawLines sets lines top-down inside b, one line-height apart, clipped
// to the box.
func (s *nativeSession) drawLines(dst *image.RGBA, b render.Box, lines []string, style render.TextStyle) error {
	if len(lines) == 0 {
		return nil
	}
	face, err := s.fonts.Face(style, s.scale)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRasterize, "failed to load font face", err)
	}
	clip := dst.SubImage(s.rect(b)).(*image.RGBA)
	d := &font.Drawer{Dst: clip, Src: image.NewUniform(parseColor(style.Color)), Face: face}

	m := face.Metrics()
	ascent := float64(m.Ascent) / 64
	descent := float64(m.Descent) / 64
	lh := style.Size * style.LineHeight * s.scale
	halfLeading := (lh - ascent - descent) / 2

	x0 := b.X * s.scale
	width := b.W * s.scale
	for i, line := range lines {
		if line == "" {
			continue
		}
		x := x0
		switch style.Align {
		case render.AlignCenter:
			x = x0 + (width-float64(d.MeasureString(line))/64)/2
		case render.AlignRight:
			x = x0 + width - float64(d.MeasureString(line))/64
		}
		baseline := b.Y*s.scale + float64(i)*lh + halfLeading + ascent
		d.Dot = fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(baseline * 64)}
		d.DrawString(line)
	}
	return nil
}

func (s *nativeSession) drawTable(dst *image.RGBA, region render.Region) error {
	t := region.Table
	if t == nil || len(t.Cells) == 0 {
		return nil
	}
	head := region.Style
	head.Bold = true

	y := region.Box.Y
	for r, row := range t.Cells {
		h := t.HeaderH
		style := head
		if r > 0 {
			h = t.RowHeights[r-1]
			style = region.Style
		}
		x := region.Box.X
		for c, cell := range row {
			w := t.ColWidths[c]
			box := render.Box{X: x, Y: y, W: w, H: h}
			if r == 0 {
				s.fill(dst, box, colorHead)
			}
			s.stroke(dst, box, colorBorder)
			inner := render.Box{
				X: x + render.CellPadding,
				Y: y + render.CellPadding,
				W: w - 2*render.CellPadding,
				H: h - 2*render.CellPadding,
			}
			if err := s.drawLines(dst, inner, cell, style); err != nil {
				return err
			}
			x += w
		}
		y += h
	}
	return nil
}

// drawImage scales the image to fit the box, keeping its aspect ratio
// and centering it. An image that cannot be loaded fails the page.
func (s *nativeSession) drawImage(ctx context.Context, dst *image.RGBA, region render.Region) error {
	img, err := s.images.Decode(ctx, region.Src)
	if err != nil {
		logger.Warn("Image could not be rasterized", zap.String("section_id", region.SectionID), zap.Error(err))
		return err
	}
	target := s.rect(region.Box)
	src := img.Bounds()
	if src.Empty() || target.Empty() {
		return nil
	}
	k := math.Min(float64(target.Dx())/float64(src.Dx()), float64(target.Dy())/float64(src.Dy()))
	w := max(1, int(float64(src.Dx())*k))
	h := max(1, int(float64(src.Dy())*k))
	off := image.Pt(target.Min.X+(target.Dx()-w)/2, target.Min.Y+(target.Dy()-h)/2)
	xdraw.CatmullRom.Scale(dst, image.Rectangle{Min: off, Max: off.Add(image.Pt(w, h))}, img, src, xdraw.Over, nil)
	return nil
}

// parseColor reads a #rrggbb color, falling back to the body text color.
func parseColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return colorText
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return colorText
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}
}
