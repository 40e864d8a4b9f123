package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/verustcode/reportdesk/pkg/errors"
)

// A4 in millimetres
const (
	a4Width  = 210.0
	a4Height = 297.0
)

// AssemblePDF places one raster per A4 page, scaled to the page width
// with no margins. Pages keep the order of rasters. No document metadata
// is written beyond the creation date.
func AssemblePDF(rasters []*Raster, created time.Time) ([]byte, error) {
	if len(rasters) == 0 {
		return nil, errors.New(errors.ErrCodeArtifactEncode, "no pages to assemble")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)
	if !created.IsZero() {
		pdf.SetCreationDate(created)
	}

	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	for i, r := range rasters {
		if r == nil || len(r.PNG) == 0 || r.Width == 0 {
			return nil, errors.New(errors.ErrCodeArtifactEncode, fmt.Sprintf("page %d has no image", i+1))
		}
		name := fmt.Sprintf("page-%d", i+1)
		pdf.AddPage()
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(r.PNG))
		h := min(a4Width*float64(r.Height)/float64(r.Width), a4Height)
		pdf.ImageOptions(name, 0, 0, a4Width, h, false, opts, 0, "")
		if pdf.Err() {
			return nil, errors.Wrap(errors.ErrCodeArtifactEncode, fmt.Sprintf("failed to place page %d", i+1), pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeArtifactEncode, "failed to write PDF", err)
	}
	return buf.Bytes(), nil
}
