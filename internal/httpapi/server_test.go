package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"subreflow/internal/annotate"
	"subreflow/internal/config"
	"subreflow/internal/logging"
	"subreflow/internal/metrics"
	"subreflow/internal/pipeline"
	"subreflow/internal/subtitle"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:04,000
The committee met again this morning to discuss
the budget for the coming year.

2
00:00:04,500 --> 00:00:06,000
Nobody agreed.
`

func words() annotate.Func {
	return func(_ context.Context, text string) ([]annotate.Token, error) {
		fields := strings.Fields(text)
		tokens := make([]annotate.Token, 0, len(fields))
		for i, f := range fields {
			space := " "
			if i == len(fields)-1 {
				space = ""
			}
			tokens = append(tokens, annotate.Token{Text: f, Space: space, POS: annotate.POSNoun, SentStart: i == 0})
		}
		return tokens, nil
	}
}

func newTestServer(t *testing.T, runner Reflower, mutate func(*config.Config)) (*httptest.Server, *metrics.Recorder) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	rec := metrics.New(false)
	if runner == nil {
		r, err := pipeline.NewFromConfig(&cfg, words(), rec, logging.NewNop())
		if err != nil {
			t.Fatalf("NewFromConfig: %v", err)
		}
		runner = r
	}
	srv := New(cfg.Server, runner, rec, logging.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, rec
}

type failingRunner struct{ err error }

func (f failingRunner) Run(context.Context, []subtitle.Cue) (pipeline.Result, error) {
	return pipeline.Result{}, f.err
}

func (failingRunner) StrategyName() string { return "regenerate" }

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["strategy"] != "regenerate" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestReflowSRT(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	resp, err := http.Post(ts.URL+"/v1/reflow?format=srt", "text/plain", strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get("X-Integrity"); got != "ok" {
		t.Fatalf("X-Integrity = %q", got)
	}
	if resp.Header.Get("X-Run-ID") == "" {
		t.Fatal("missing X-Run-ID")
	}

	cues, err := subtitle.Decode(resp.Body, subtitle.FormatSRT)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	source, _ := subtitle.Decode(strings.NewReader(sampleSRT), subtitle.FormatSRT)
	if strings.Join(strings.Fields(subtitle.Transcript(cues)), " ") != strings.Join(strings.Fields(subtitle.Transcript(source)), " ") {
		t.Fatalf("words changed: %q", subtitle.Transcript(cues))
	}
	if len(cues) < 2 {
		t.Fatalf("expected at least 2 cues, got %d", len(cues))
	}
}

func TestReflowJSONEnvelope(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	resp, err := http.Post(ts.URL+"/v1/reflow?response=json", "text/plain", strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var body reflowResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Integrity.OK || body.Format != "srt" || body.RunID == "" {
		t.Fatalf("unexpected envelope %+v", body)
	}
	if len(body.Provenance) != 2 || body.Provenance[1].Original != "Nobody agreed." {
		t.Fatalf("unexpected provenance %+v", body.Provenance)
	}
	if !strings.Contains(body.Output, "Nobody agreed.") {
		t.Fatalf("output missing text: %q", body.Output)
	}
}

func TestReflowErrors(t *testing.T) {
	tests := []struct {
		name   string
		runner Reflower
		mutate func(*config.Config)
		query  string
		body   string
		status int
		code   string
	}{
		{name: "unsupported format", query: "?format=docx", body: sampleSRT, status: http.StatusBadRequest, code: "unsupported_format"},
		{name: "too large", mutate: func(c *config.Config) { c.Server.MaxBodyBytes = 16 }, body: sampleSRT, status: http.StatusRequestEntityTooLarge, code: "body_too_large"},
		{name: "pipeline failure", runner: failingRunner{err: errors.New("annotator down")}, body: sampleSRT, status: http.StatusInternalServerError, code: "reflow_failed"},
		{name: "timeout", runner: failingRunner{err: context.DeadlineExceeded}, body: sampleSRT, status: http.StatusGatewayTimeout, code: "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(t, tt.runner, tt.mutate)
			resp, err := http.Post(ts.URL+"/v1/reflow"+tt.query, "text/plain", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body errorResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.code {
				t.Fatalf("code = %q, want %q", body.Code, tt.code)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	resp, err := http.Post(ts.URL+"/v1/reflow", "text/plain", strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "subreflow_runs_total") {
		t.Fatalf("metrics missing runs counter:\n%s", body)
	}
}
