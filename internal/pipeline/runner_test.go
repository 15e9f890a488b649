package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"subreflow/internal/annotate"
	"subreflow/internal/config"
	"subreflow/internal/logging"
	"subreflow/internal/metrics"
	"subreflow/internal/subtitle"
)

// wordAnnotator splits on spaces and detaches trailing punctuation.
func wordAnnotator() annotate.Func {
	return func(ctx context.Context, text string) ([]annotate.Token, error) {
		var tokens []annotate.Token
		fields := strings.Fields(text)
		for i, f := range fields {
			space := " "
			if i == len(fields)-1 {
				space = ""
			}
			word := strings.TrimRight(f, ".,!?")
			punct := f[len(word):]
			if word != "" {
				ws := space
				if punct != "" {
					ws = ""
				}
				tokens = append(tokens, annotate.Token{Text: word, Space: ws, POS: annotate.POSNoun, SentStart: i == 0})
			}
			if punct != "" {
				tokens = append(tokens, annotate.Token{Text: punct, Space: space, POS: annotate.POSPunctuation})
			}
		}
		return tokens, nil
	}
}

func testConfig(t *testing.T, strategy string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Timing.Strategy = strategy
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return &cfg
}

func newRunner(t *testing.T, cfg *config.Config, ann annotate.Annotator, rec *metrics.Recorder) *Runner {
	t.Helper()
	r, err := NewFromConfig(cfg, ann, rec, logging.NewNop())
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	return r
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func sampleCues() []subtitle.Cue {
	return []subtitle.Cue{
		{Index: 1, Start: ms(1000), End: ms(4000), Lines: []string{"The committee met again this morning to discuss", "the budget for the coming year and the new hires."}},
		{Index: 2, Start: ms(4200), End: ms(6000), Lines: []string{"Nobody agreed."}},
		{Index: 3, Start: ms(6500), End: ms(7000), Lines: []string{"  "}},
		{Index: 4, Start: ms(9000), End: ms(11000), Lines: []string{"We will try again", "tomorrow."}},
	}
}

func TestRunRegenerate(t *testing.T) {
	cfg := testConfig(t, "regenerate")
	rec := metrics.New(false)
	r := newRunner(t, cfg, wordAnnotator(), rec)

	result, err := r.Run(context.Background(), sampleCues())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RunID == "" {
		t.Fatal("expected run id")
	}
	if !result.Integrity.OK {
		t.Fatalf("integrity failed: %s", result.Integrity.Summary())
	}
	if result.Stats.EmptyCues != 1 || result.Stats.SourceCues != 4 {
		t.Fatalf("unexpected stats %+v", result.Stats)
	}

	gap := cfg.Timing.TransitionGap()
	for i, cue := range result.Cues {
		if cue.Index != i+1 {
			t.Fatalf("cue %d has index %d", i, cue.Index)
		}
		if n := len(cue.Lines); n < 1 || n > 2 {
			t.Fatalf("cue %d has %d lines", i, n)
		}
		for _, line := range cue.Lines {
			if len([]rune(line)) > cfg.Reflow.MaxLineLength {
				t.Fatalf("line %q exceeds %d", line, cfg.Reflow.MaxLineLength)
			}
		}
		if cue.Start >= cue.End {
			t.Fatalf("cue %d has start >= end", i)
		}
		if i+1 < len(result.Cues) && cue.End+gap > result.Cues[i+1].Start {
			t.Fatalf("cue %d overlaps the next one", i)
		}
	}

	if got := result.Provenance.Generated(1); len(got) < 2 {
		t.Fatalf("expected source 1 to be split, got %q", got)
	}
	if got := result.Provenance.Generated(3); len(got) != 0 {
		t.Fatalf("empty source produced %q", got)
	}
	if got := testutil.ToFloat64(rec.RunsTotal.WithLabelValues("regenerate", metrics.OutcomeOK)); got != 1 {
		t.Fatalf("runs metric = %v", got)
	}
}

func TestRunAdjustMergesShortCues(t *testing.T) {
	cfg := testConfig(t, "adjust")
	r := newRunner(t, cfg, wordAnnotator(), nil)

	result, err := r.Run(context.Background(), []subtitle.Cue{
		{Index: 1, Start: 0, End: ms(1000), Lines: []string{"Hi."}},
		{Index: 2, Start: ms(1080), End: ms(2000), Lines: []string{"Bye."}},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Cues) != 1 {
		t.Fatalf("expected one merged cue, got %d", len(result.Cues))
	}
	if c := result.Cues[0]; c.Start != 0 || c.End != ms(2000) || c.Text() != "Hi. Bye." {
		t.Fatalf("unexpected cue %+v", c)
	}
}

func TestRunUsesRunIDFromContext(t *testing.T) {
	r := newRunner(t, testConfig(t, "regenerate"), wordAnnotator(), nil)
	ctx := logging.WithRunID(context.Background(), "fixed-id")
	result, err := r.Run(ctx, sampleCues())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RunID != "fixed-id" {
		t.Fatalf("run id = %q", result.RunID)
	}
}

func TestRunReportsIntegrityMismatch(t *testing.T) {
	dropLast := annotate.Func(func(ctx context.Context, text string) ([]annotate.Token, error) {
		tokens, _ := wordAnnotator()(ctx, text)
		if len(tokens) > 1 {
			tokens = tokens[:len(tokens)-1]
		}
		return tokens, nil
	})
	rec := metrics.New(false)
	r := newRunner(t, testConfig(t, "regenerate"), dropLast, rec)

	result, err := r.Run(context.Background(), sampleCues())
	if err != nil {
		t.Fatalf("mismatch must not be fatal: %v", err)
	}
	if result.Integrity.OK {
		t.Fatal("expected integrity mismatch")
	}
	if len(result.Cues) == 0 {
		t.Fatal("expected best-effort output")
	}
	if got := testutil.ToFloat64(rec.RunsTotal.WithLabelValues("regenerate", metrics.OutcomeMismatch)); got != 1 {
		t.Fatalf("mismatch metric = %v", got)
	}
}

func TestRunAnnotatorFailureIsFatal(t *testing.T) {
	boom := errors.New("model unavailable")
	failing := annotate.Func(func(context.Context, string) ([]annotate.Token, error) {
		return nil, boom
	})
	r := newRunner(t, testConfig(t, "regenerate"), failing, nil)
	if _, err := r.Run(context.Background(), sampleCues()); !errors.Is(err, boom) {
		t.Fatalf("expected annotator error, got %v", err)
	}
}

func TestRunAnnotateTimeout(t *testing.T) {
	slow := annotate.Func(func(ctx context.Context, text string) ([]annotate.Token, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	cfg := testConfig(t, "regenerate")
	r, err := NewFromConfig(cfg, slow, nil, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	r.timeout = 10 * time.Millisecond
	if _, err := r.Run(context.Background(), sampleCues()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newRunner(t, testConfig(t, "regenerate"), wordAnnotator(), nil)
	if _, err := r.Run(ctx, sampleCues()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunBoundsWorkers(t *testing.T) {
	var active, peak atomic.Int32
	tracking := annotate.Func(func(ctx context.Context, text string) ([]annotate.Token, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return wordAnnotator()(ctx, text)
	})
	cfg := testConfig(t, "regenerate")
	cfg.Annotator.Workers = 2
	r := newRunner(t, cfg, tracking, nil)

	var cues []subtitle.Cue
	for i := 0; i < 12; i++ {
		cues = append(cues, subtitle.Cue{Index: i + 1, Start: ms(i * 3000), End: ms(i*3000 + 2000), Lines: []string{"Line number one."}})
	}
	if _, err := r.Run(context.Background(), cues); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p := peak.Load(); p > 2 {
		t.Fatalf("peak concurrency %d exceeds worker limit", p)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without annotator")
	}
}
