// Package transcript renders semester results to downloadable transcripts.
//
// A transcript is first drawn to a raster at a fixed layout, upscaled for legibility.
// The image export is that raster as a PNG; the PDF export slices it into page-height
// bands, one band per page.
package transcript

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/kat-co/vala"

	"github.com/campusrecords/campus/core"
)

// Cache keeps exported artifacts by content key.
type Cache interface {
	Load(key string) ([]byte, bool, error)
	Store(key string, val []byte) error
}

// Recorder receives the outcome of every export. Used for metrics.
type Recorder interface {
	TranscriptExported(format Format, cached bool, err error)
}

type Options struct {
	AppName    string
	Scale      int
	PageWidth  float64 // mm
	PageHeight float64 // mm
}

type Exporter struct {
	opts     Options
	cache    Cache // optional
	recorder Recorder
	logger   core.Logger
}

func NewExporter(opts Options, cache Cache, recorder Recorder, logger core.Logger) (*Exporter, error) {
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(opts.AppName, "AppName"),
		vala.GreaterThan(opts.Scale, 0, "Scale"),
		vala.GreaterThan(int(opts.PageWidth), 0, "PageWidth"),
		vala.GreaterThan(int(opts.PageHeight), 0, "PageHeight"),
		vala.IsNotNil(logger, "logger"),
	).Check()
	if err != nil {
		return nil, err
	}
	return &Exporter{opts: opts, cache: cache, recorder: recorder, logger: logger}, nil
}

// Export renders view to format. Exporting the same view twice yields equivalent artifacts;
// the second one may be served from the cache. Failures are returned as *ExportError.
func (e *Exporter) Export(ctx context.Context, view View, format Format) (Artifact, error) {
	art, err := e.export(ctx, view, format)
	if e.recorder != nil {
		e.recorder.TranscriptExported(format, art.Cached, err)
	}
	return art, err
}

func (e *Exporter) export(ctx context.Context, view View, format Format) (Artifact, error) {
	if format != FormatImage && format != FormatPDF {
		return Artifact{}, &ExportError{Format: format, Err: fmt.Errorf("unknown format %q", format)}
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	key, err := e.key(view, format)
	if err != nil {
		return Artifact{}, &ExportError{Format: format, Err: err}
	}
	if art, ok := e.load(key); ok {
		return art, nil
	}

	img, err := render(view, e.verification(view), e.opts.Scale)
	if err != nil {
		return Artifact{}, &ExportError{Format: format, Err: err}
	}

	art := Artifact{
		Filename:    Filename(view.StudentName, view.Semester, format),
		ContentType: format.ContentType(),
	}
	switch format {
	case FormatImage:
		var buf bytes.Buffer
		if err = imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return Artifact{}, &ExportError{Format: format, Err: err}
		}
		art.Data = buf.Bytes()
		art.Pages = 1
	case FormatPDF:
		title := fmt.Sprintf("%s - Semester %d Results", view.StudentName, view.Semester)
		art.Data, art.Pages, err = writePDF(ctx, img, title, e.opts.AppName, e.opts.PageWidth, e.opts.PageHeight)
		if err != nil {
			if ctx.Err() != nil {
				return Artifact{}, ctx.Err()
			}
			return Artifact{}, &ExportError{Format: format, Err: err}
		}
	}

	e.store(key, art)
	return art, nil
}

// verification is encoded in the transcript QR code.
func (e *Exporter) verification(v View) string {
	return fmt.Sprintf("%s|%s|semester=%d|cgpa=%.2f|%s",
		e.opts.AppName, v.StudentID, v.Semester, v.Summary.CGPA, v.Summary.FinalResult)
}

func (e *Exporter) key(v View, format Format) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(data)
	fmt.Fprintf(h, "|%s|%d|%.2fx%.2f", format, e.opts.Scale, e.opts.PageWidth, e.opts.PageHeight)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (e *Exporter) load(key string) (Artifact, bool) {
	if e.cache == nil {
		return Artifact{}, false
	}
	data, ok, err := e.cache.Load(key)
	if err != nil {
		e.logger.Warn(fmt.Sprintf("loading cached transcript: %v", err), err)
		return Artifact{}, false
	}
	if !ok {
		return Artifact{}, false
	}
	var art Artifact
	if err = json.Unmarshal(data, &art); err != nil {
		e.logger.Warn(fmt.Sprintf("decoding cached transcript: %v", err), err)
		return Artifact{}, false
	}
	art.Cached = true
	return art, true
}

func (e *Exporter) store(key string, art Artifact) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(art)
	if err == nil {
		err = e.cache.Store(key, data)
	}
	if err != nil {
		e.logger.Warn(fmt.Sprintf("caching transcript: %v", err), err)
	}
}
