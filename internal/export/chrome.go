package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/internal/render"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// Chrome defaults
const (
	DefaultChromeStartupTimeout = 60 * time.Second
	DefaultChromePageTimeout    = 60 * time.Second
)

// waitAssetsJS resolves once web fonts are loaded and every image has
// either loaded or failed.
const waitAssetsJS = `Promise.all([document.fonts.ready].concat(Array.from(document.images).map(function (img) {
  return img.complete ? null : new Promise(function (resolve) { img.onload = img.onerror = resolve; });
}))).then(function () {
  return Array.from(document.images).every(function (img) { return img.naturalWidth > 0; });
})`

// ChromeOptions configures the headless Chrome rasterizer.
type ChromeOptions struct {
	// ExecPath of the Chrome binary. Empty falls back to CHROME_PATH, then
	// to the chromedp lookup.
	ExecPath       string
	StartupTimeout time.Duration
	PageTimeout    time.Duration
}

// ChromeRasterizer captures each page by loading its capture HTML in
// headless Chrome and taking a viewport screenshot at the page size.
type ChromeRasterizer struct {
	opts   ChromeOptions
	images *ImageLoader
}

// NewChromeRasterizer returns a ChromeRasterizer.
func NewChromeRasterizer(opts ChromeOptions, images *ImageLoader) *ChromeRasterizer {
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = DefaultChromeStartupTimeout
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = DefaultChromePageTimeout
	}
	if opts.ExecPath == "" {
		opts.ExecPath = os.Getenv("CHROME_PATH")
	}
	return &ChromeRasterizer{opts: opts, images: images}
}

// Name implements Rasterizer.
func (r *ChromeRasterizer) Name() string {
	return RasterizerChrome
}

// allocatorOptions returns the exec allocator flags for a headless run.
func (r *ChromeRasterizer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-software-rasterizer", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("headless", true),
		chromedp.WSURLReadTimeout(r.opts.StartupTimeout),
	)
	if r.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.opts.ExecPath))
	}
	return opts
}

// Open starts one browser for the whole session.
func (r *ChromeRasterizer) Open(ctx context.Context, pages []render.Page, scale float64) (Session, error) {
	if scale <= 0 {
		scale = DefaultScale
	}

	logger.Debug("Starting Chrome for capture",
		zap.String("chrome_path", r.opts.ExecPath),
		zap.Duration("startup_timeout", r.opts.StartupTimeout),
	)

	// The browser outlives ctx; it is bound to the session and torn down
	// by Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), r.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf("chromedp: "+format, args...))
		}),
	)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()

	var err error
	select {
	case err = <-started:
	case <-ctx.Done():
		err = ctx.Err()
	case <-time.After(r.opts.StartupTimeout):
		err = fmt.Errorf("no response within %s", r.opts.StartupTimeout)
	}
	if err != nil {
		browserCancel()
		allocCancel()
		logger.Error("Chrome failed to start", zap.Error(err))
		return nil, errors.Wrap(errors.ErrCodeBrowserStartup, "failed to start headless Chrome", err)
	}

	return &chromeSession{
		rasterizer: r,
		images:     r.images.NewSet(),
		pages:      pages,
		scale:      scale,
		browserCtx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
	}, nil
}

type chromeSession struct {
	rasterizer *ChromeRasterizer
	images     *ImageSet
	pages      []render.Page
	scale      float64
	browserCtx context.Context

	closeOnce sync.Once
	cancel    context.CancelFunc
}

// Close stops the browser and drops the session's images.
func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.images.Release()
	})
	return nil
}

// Capture implements Session.
func (s *chromeSession) Capture(ctx context.Context, index int) (*Raster, error) {
	if index < 0 || index >= len(s.pages) {
		return nil, errors.ErrIndex("page", index, len(s.pages))
	}

	p, err := s.inlineImages(ctx, s.pages[index])
	if err != nil {
		return nil, err
	}
	html, err := render.HTML([]render.Page{p}, render.HTMLOptions{Title: fmt.Sprintf("Page %d", p.Number), PageIndex: 1})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRasterize, "failed to render capture markup", err)
	}

	// a temp file avoids data URL size limits
	tmp, err := os.CreateTemp("", "reportdesk-page-*.html")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRasterize, "failed to create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.WriteString(html); err != nil {
		tmp.Close()
		return nil, errors.Wrap(errors.ErrCodeRasterize, "failed to write temp file", err)
	}
	tmp.Close()

	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	defer tabCancel()
	runCtx, runCancel := context.WithTimeout(tabCtx, s.rasterizer.opts.PageTimeout)
	defer runCancel()
	// follow the caller's cancellation as well
	stop := context.AfterFunc(ctx, runCancel)
	defer stop()

	var (
		shot     []byte
		assetsOK bool
	)
	start := time.Now()
	err = chromedp.Run(runCtx,
		chromedp.EmulateViewport(render.PageWidth, render.PageHeight, chromedp.EmulateScale(s.scale)),
		chromedp.Navigate("file://"+tmpPath),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(waitAssetsJS, &assetsOK, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			shot, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithFromSurface(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Error("Chrome capture failed",
			zap.Int("page", p.Number),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, errors.Wrap(errors.ErrCodeRasterize, fmt.Sprintf("failed to capture page %d", p.Number), err)
	}
	if !assetsOK {
		return nil, errors.New(errors.ErrCodeImageFetch, fmt.Sprintf("an image on page %d did not load", p.Number))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(shot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRasterize, "screenshot is not a PNG", err)
	}
	logger.Debug("Captured page",
		zap.Int("page", p.Number),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.String("size", formatBytes(len(shot))),
		zap.Duration("duration", time.Since(start)),
	)
	return &Raster{PNG: shot, Width: cfg.Width, Height: cfg.Height}, nil
}

// inlineImages replaces external image sources with data: URIs fetched
// through the image loader, so the browser never issues its own requests
// and the CORS rule is applied in one place.
func (s *chromeSession) inlineImages(ctx context.Context, p render.Page) (render.Page, error) {
	regions := make([]render.Region, len(p.Regions))
	copy(regions, p.Regions)
	for i, r := range regions {
		if r.Kind != render.RegionImage {
			continue
		}
		uri, err := s.images.DataURI(ctx, r.Src)
		if err != nil {
			return p, err
		}
		regions[i].Src = uri
	}
	p.Regions = regions
	return p, nil
}

// formatBytes converts bytes to human-readable format
func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := int64(n) / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
