package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// Image loading defaults
const (
	DefaultImageFetchTimeout = 15 * time.Second
	DefaultConsoleOrigin     = "http://127.0.0.1:8091"
	maxImageBytes            = 20 << 20
)

// ImageLoaderOptions configures an ImageLoader.
type ImageLoaderOptions struct {
	// Origin is sent as the Origin header and must be allowed by the
	// Access-Control-Allow-Origin of every external image.
	Origin  string
	Timeout time.Duration
	Client  *http.Client
}

// ImageLoader resolves image references. Inline data: URIs always load;
// external URLs load only when the server allows the console origin, the
// same rule a browser applies to a CORS-mode image fetch. The loader itself
// keeps nothing; caching happens per export in an ImageSet.
type ImageLoader struct {
	origin string
	client *http.Client
}

type loadedImage struct {
	data []byte
	mime string
}

// NewImageLoader returns an ImageLoader.
func NewImageLoader(opts ImageLoaderOptions) *ImageLoader {
	if opts.Origin == "" {
		opts.Origin = DefaultConsoleOrigin
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultImageFetchTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &ImageLoader{
		origin: strings.TrimRight(opts.Origin, "/"),
		client: client,
	}
}

// Origin returns the origin external images must allow.
func (l *ImageLoader) Origin() string {
	return l.origin
}

// Decode loads src and decodes it.
func (l *ImageLoader) Decode(ctx context.Context, src string) (image.Image, error) {
	img, err := l.load(ctx, src)
	if err != nil {
		return nil, err
	}
	return img.decode()
}

// DataURI loads src and returns it as an inline data: URI.
func (l *ImageLoader) DataURI(ctx context.Context, src string) (string, error) {
	if strings.HasPrefix(src, "data:") {
		return src, nil
	}
	img, err := l.load(ctx, src)
	if err != nil {
		return "", err
	}
	return ToDataURI(img.data, img.mime), nil
}

// NewSet returns an empty ImageSet loading through l.
func (l *ImageLoader) NewSet() *ImageSet {
	return &ImageSet{loader: l, cache: make(map[string]*loadedImage)}
}

// ImageSet loads each source at most once for the lifetime of one export
// session. Release drops the cached bytes; the next export fetches external
// images again and re-checks their CORS headers.
type ImageSet struct {
	loader *ImageLoader

	mu    sync.Mutex
	cache map[string]*loadedImage
}

// Decode is ImageLoader.Decode through the set.
func (s *ImageSet) Decode(ctx context.Context, src string) (image.Image, error) {
	img, err := s.load(ctx, src)
	if err != nil {
		return nil, err
	}
	return img.decode()
}

// DataURI is ImageLoader.DataURI through the set.
func (s *ImageSet) DataURI(ctx context.Context, src string) (string, error) {
	if strings.HasPrefix(src, "data:") {
		return src, nil
	}
	img, err := s.load(ctx, src)
	if err != nil {
		return "", err
	}
	return ToDataURI(img.data, img.mime), nil
}

// Len returns the number of cached sources.
func (s *ImageSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// Release drops every cached image.
func (s *ImageSet) Release() {
	s.mu.Lock()
	s.cache = make(map[string]*loadedImage)
	s.mu.Unlock()
}

func (s *ImageSet) load(ctx context.Context, src string) (*loadedImage, error) {
	s.mu.Lock()
	cached, ok := s.cache[src]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	img, err := s.loader.load(ctx, src)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[src] = img
	s.mu.Unlock()
	return img, nil
}

func (img *loadedImage) decode() (image.Image, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img.data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeImageFetch, fmt.Sprintf("cannot decode %s image", img.mime), err)
	}
	return decoded, nil
}

// ToDataURI encodes data as a base64 data: URI.
func ToDataURI(data []byte, mime string) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (l *ImageLoader) load(ctx context.Context, src string) (*loadedImage, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(src, "data:"):
		data, err = parseDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		data, err = l.fetch(ctx, src)
	default:
		return nil, errors.New(errors.ErrCodeImageFetch, "unsupported image source")
	}
	if err != nil {
		return nil, err
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, errors.New(errors.ErrCodeImageFetch, fmt.Sprintf("image source is %s, not an image", mt.String()))
	}
	return &loadedImage{data: data, mime: mt.String()}, nil
}

// fetch downloads an external image in CORS mode.
func (l *ImageLoader) fetch(ctx context.Context, src string) ([]byte, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeImageFetch, "invalid image URL", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeImageFetch, "invalid image URL", err)
	}
	req.Header.Set("Origin", l.origin)
	req.Header.Set("Accept", "image/*")

	resp, err := l.client.Do(req)
	if err != nil {
		logger.Warn("Image fetch failed", zap.String("host", u.Host), zap.Error(err))
		return nil, errors.Wrap(errors.ErrCodeImageFetch, "failed to fetch image from "+u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeImageFetch, fmt.Sprintf("image from %s answered %d", u.Host, resp.StatusCode))
	}
	if !corsAllows(resp.Header.Get("Access-Control-Allow-Origin"), l.origin) {
		logger.Warn("Image blocked by CORS",
			zap.String("host", u.Host),
			zap.String("origin", l.origin),
			zap.String("allow_origin", resp.Header.Get("Access-Control-Allow-Origin")))
		return nil, errors.New(errors.ErrCodeImageFetch,
			fmt.Sprintf("image from %s does not allow origin %s", u.Host, l.origin))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeImageFetch, "failed to read image from "+u.Host, err)
	}
	if len(data) > maxImageBytes {
		return nil, errors.New(errors.ErrCodeImageFetch, fmt.Sprintf("image from %s exceeds %d bytes", u.Host, maxImageBytes))
	}
	return data, nil
}

// corsAllows applies the Access-Control-Allow-Origin rule for a request
// without credentials.
func corsAllows(allow, origin string) bool {
	allow = strings.TrimSpace(allow)
	return allow == "*" || strings.EqualFold(strings.TrimRight(allow, "/"), origin)
}

// parseDataURI decodes the payload of a data: URI.
func parseDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, errors.New(errors.ErrCodeImageFetch, "malformed data URI")
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		payload = strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' || r == ' ' {
				return -1
			}
			return r
		}, payload)
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// some encoders drop the padding
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeImageFetch, "malformed base64 in data URI", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeImageFetch, "malformed data URI", err)
	}
	return []byte(data), nil
}
