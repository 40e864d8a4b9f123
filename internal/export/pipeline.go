package export

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/consts"
	"github.com/verustcode/reportdesk/internal/render"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/idgen"
	"github.com/verustcode/reportdesk/pkg/logger"
	"github.com/verustcode/reportdesk/pkg/telemetry"
)

// ContentTypePDF is the media type of every artifact.
const ContentTypePDF = "application/pdf"

// Artifact is a finished export.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	Pages       int
	CreatedAt   time.Time
}

// Filename returns the artifact name for an export made at t.
func Filename(t time.Time) string {
	return consts.ExportFilePrefix + t.Format("2006-01-02") + consts.ExportFileExtension
}

// Progress is called after each page is captured. done counts captured
// pages, starting at 1.
type Progress func(done, total int)

// Pipeline rasterizes pages one at a time and assembles them into a PDF.
type Pipeline struct {
	rasterizer Rasterizer
	scale      float64
	jobs       *Jobs
	now        func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithScale sets the oversampling factor.
func WithScale(scale float64) PipelineOption {
	return func(p *Pipeline) {
		if scale > 0 {
			p.scale = scale
		}
	}
}

// WithJobs shares a status registry between pipelines.
func WithJobs(j *Jobs) PipelineOption {
	return func(p *Pipeline) {
		if j != nil {
			p.jobs = j
		}
	}
}

// WithClock overrides the clock used for filenames and status times.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
			p.jobs.now = now
		}
	}
}

// NewPipeline returns a Pipeline capturing with r.
func NewPipeline(r Rasterizer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		rasterizer: r,
		scale:      DefaultScale,
		jobs:       NewJobs(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Jobs returns the export status registry.
func (p *Pipeline) Jobs() *Jobs {
	return p.jobs
}

// Rasterizer returns the capture backend.
func (p *Pipeline) Rasterizer() Rasterizer {
	return p.rasterizer
}

type exportOptions struct {
	formID   string
	progress Progress
}

// ExportOption configures one Export call.
type ExportOption func(*exportOptions)

// WithFormID ties the export to a form for status tracking and logs.
func WithFormID(id string) ExportOption {
	return func(o *exportOptions) { o.formID = id }
}

// WithProgress registers a per-page progress callback.
func WithProgress(fn Progress) ExportOption {
	return func(o *exportOptions) { o.progress = fn }
}

// Export rasterizes pages in order and returns the assembled PDF. Any
// failure aborts the export and no artifact is returned. A second export
// for the same form is rejected while one is running.
func (p *Pipeline) Export(ctx context.Context, pages []render.Page, opts ...ExportOption) (*Artifact, error) {
	var o exportOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.formID == "" {
		// a standalone export still gets its own job entry
		o.formID = idgen.NewFormID()
	}
	metrics := telemetry.GetMetrics()
	log := logger.WithForm(o.formID)

	if err := p.jobs.begin(o.formID, len(pages)); err != nil {
		metrics.RecordExportRejected(ctx)
		log.Warn("Export rejected, another export is running")
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "export.pdf",
		telemetry.WithExportAttributes(o.formID, p.rasterizer.Name(), len(pages), p.scale))
	defer span.End()

	start := time.Now()
	metrics.RecordExportStarted(ctx)
	log.Info("Export started",
		zap.String("rasterizer", p.rasterizer.Name()),
		zap.Int("pages", len(pages)),
		zap.Float64("scale", p.scale),
	)

	artifact, err := p.run(ctx, pages, o)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		p.jobs.finish(o.formID, "", err)
		metrics.RecordExportFinished(ctx, telemetry.ExportStatusFailed, 0, elapsed)
		telemetry.SetSpanError(span, err)
		log.Error("Export failed", zap.Error(err), zap.Float64("duration_s", elapsed))
		return nil, err
	}

	p.jobs.finish(o.formID, artifact.Filename, nil)
	metrics.RecordExportFinished(ctx, telemetry.ExportStatusCompleted, artifact.Pages, elapsed)
	telemetry.SetSpanOK(span)
	log.Info("Export completed",
		zap.String("filename", artifact.Filename),
		zap.Int("pages", artifact.Pages),
		zap.String("size", formatBytes(len(artifact.Data))),
		zap.Float64("duration_s", elapsed),
	)
	return artifact, nil
}

func (p *Pipeline) run(ctx context.Context, pages []render.Page, o exportOptions) (*Artifact, error) {
	if len(pages) == 0 {
		return nil, errors.New(errors.ErrCodeArtifactEncode, "nothing to export")
	}

	session, err := p.rasterizer.Open(ctx, pages, p.scale)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	span := telemetry.SpanFromContext(ctx)
	rasters := make([]*Raster, 0, len(pages))
	for i := range pages {
		r, err := session.Capture(ctx, i)
		if err != nil {
			if _, ok := errors.AsAppError(err); !ok {
				err = errors.Wrap(errors.ErrCodeRasterize, "page capture failed", err)
			}
			return nil, err
		}
		rasters = append(rasters, r)

		p.jobs.progress(o.formID, i+1)
		telemetry.AddSpanEvent(span, "page captured", telemetry.AttrExportPage.Int(i+1))
		if o.progress != nil {
			o.progress(i+1, len(pages))
		}
	}

	created := p.now()
	data, err := AssemblePDF(rasters, created)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Filename:    Filename(created),
		ContentType: ContentTypePDF,
		Data:        data,
		Pages:       len(rasters),
		CreatedAt:   created,
	}, nil
}
