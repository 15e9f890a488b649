package metrics

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New(false)
	r.ObserveRun("regenerate", OutcomeOK)
	r.ObserveRun("regenerate", OutcomeOK)
	r.ObserveRun("adjust", OutcomeMismatch)
	r.AddCues(10, 14)
	r.ObserveStage("timing", 20*time.Millisecond)
	r.ObserveAnnotate(3 * time.Millisecond)

	if got := testutil.ToFloat64(r.RunsTotal.WithLabelValues("regenerate", OutcomeOK)); got != 2 {
		t.Fatalf("runs ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.CuesTotal.WithLabelValues("generated")); got != 14 {
		t.Fatalf("generated cues = %v, want 14", got)
	}
	if got := testutil.CollectAndCount(r.StageDuration); got != 1 {
		t.Fatalf("stage series = %d, want 1", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveRun("regenerate", OutcomeOK)
	r.AddCues(1, 1)
	r.ObserveStage("verify", time.Millisecond)
	r.ObserveAnnotate(time.Millisecond)
	r.TrackInFlight()()
	if err := r.WriteTextfile("/nonexistent/metrics.prom"); err != nil {
		t.Fatalf("nil WriteTextfile: %v", err)
	}
}

func TestInFlight(t *testing.T) {
	r := New(false)
	done := r.TrackInFlight()
	if got := testutil.ToFloat64(r.InFlight); got != 1 {
		t.Fatalf("in flight = %v, want 1", got)
	}
	done()
	if got := testutil.ToFloat64(r.InFlight); got != 0 {
		t.Fatalf("in flight = %v, want 0", got)
	}
}

func TestHandlerAndTextfile(t *testing.T) {
	r := New(false)
	r.ObserveRun("regenerate", OutcomeOK)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `subreflow_runs_total{outcome="ok",strategy="regenerate"} 1`) {
		t.Fatalf("unexpected exposition:\n%s", body)
	}

	path := filepath.Join(t.TempDir(), "textfile", "subreflow.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "subreflow_runs_total") {
		t.Fatalf("textfile missing counter:\n%s", data)
	}
}
