package metricsvc

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/campusrecords/campus/core/mark"
	"github.com/campusrecords/campus/core/transcript"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.MarkWritten(mark.KindSubject, mark.OutcomeCreated)
	m.MarkWritten(mark.KindSubject, mark.OutcomeCreated)
	m.MarkWritten(mark.KindLab, mark.OutcomeFailed)
	if got := testutil.ToFloat64(m.markRows.WithLabelValues("subject", "created")); got != 2 {
		t.Errorf("subject created rows = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.markRows.WithLabelValues("lab", "failed")); got != 1 {
		t.Errorf("lab failed rows = %v, want 1", got)
	}

	m.TranscriptExported(transcript.FormatPDF, false, nil)
	m.TranscriptExported(transcript.FormatPDF, true, nil)
	m.TranscriptExported(transcript.FormatImage, false, errors.New("boom"))
	for _, tt := range []struct {
		format, result string
	}{{"pdf", "rendered"}, {"pdf", "cached"}, {"image", "failed"}} {
		if got := testutil.ToFloat64(m.exports.WithLabelValues(tt.format, tt.result)); got != 1 {
			t.Errorf("%s %s exports = %v, want 1", tt.format, tt.result, got)
		}
	}

	m.ObserveRequest(http.MethodGet, "/v1/subjects", http.StatusOK, 3*time.Millisecond)
	if got := testutil.CollectAndCount(m.requests); got != 1 {
		t.Errorf("request series = %d, want 1", got)
	}
}
