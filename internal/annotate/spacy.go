package annotate

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"subreflow/internal/logging"
)

//go:embed spacy_worker.py
var spacyWorkerScript string

var errWorkerClosed = errors.New("spacy worker closed")

type spacyRequest struct {
	Text string `json:"text"`
}

type spacyToken struct {
	Text      string `json:"text"`
	Space     string `json:"ws"`
	POS       string `json:"pos"`
	Dep       string `json:"dep"`
	Entity    string `json:"ent"`
	SentStart bool   `json:"sent_start"`
}

type spacyResponse struct {
	Ready   bool         `json:"ready"`
	Model   string       `json:"model"`
	Version string       `json:"version"`
	Tokens  []spacyToken `json:"tokens"`
	Error   string       `json:"error"`
}

// spacyAnnotator keeps one Python process alive for the whole run. The model is
// loaded once at startup; requests are serialised over stdin/stdout.
type spacyAnnotator struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	model   string
	timeout time.Duration
	logger  *slog.Logger
	broken  error
}

func startSpacy(ctx context.Context, python, model string, timeout time.Duration, logger *slog.Logger) (*spacyAnnotator, error) {
	cmd := exec.Command(python, "-c", spacyWorkerScript, model) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", python, err)
	}
	ann := &spacyAnnotator{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  bufio.NewReaderSize(stdout, 1<<20),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}

	// Model loading dominates startup, so the handshake gets a generous budget.
	hello, err := ann.readResponse(ctx, 12*timeout)
	if err != nil {
		_ = ann.kill()
		return nil, fmt.Errorf("await worker handshake: %w", err)
	}
	if hello.Error != "" {
		_ = ann.kill()
		return nil, fmt.Errorf("worker: %s", hello.Error)
	}
	if !hello.Ready {
		_ = ann.kill()
		return nil, errors.New("worker handshake missing ready flag")
	}
	logger.Info("spacy worker started",
		logging.String("model", hello.Model),
		logging.String("spacy_version", hello.Version),
	)
	return ann, nil
}

func (s *spacyAnnotator) Name() string { return BackendSpacy }

func (s *spacyAnnotator) Annotate(ctx context.Context, text string) ([]Token, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken != nil {
		return nil, s.broken
	}

	payload, err := json.Marshal(spacyRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := s.stdin.Write(payload); err != nil {
		s.broken = fmt.Errorf("write request: %w", err)
		return nil, s.broken
	}

	resp, err := s.readResponse(ctx, s.timeout)
	if err != nil {
		// The reply stream is now out of step with requests; the worker
		// cannot be reused.
		s.broken = fmt.Errorf("%w: %v", errWorkerClosed, err)
		_ = s.kill()
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("spacy: %s", resp.Error)
	}

	tokens := make([]Token, 0, len(resp.Tokens))
	for _, st := range resp.Tokens {
		tokens = append(tokens, Token(st))
	}
	return tokens, nil
}

func (s *spacyAnnotator) readResponse(ctx context.Context, timeout time.Duration) (spacyResponse, error) {
	type result struct {
		line []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := s.stdout.ReadBytes('\n')
		done <- result{line: line, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		return spacyResponse{}, ctx.Err()
	case <-timer.C:
		return spacyResponse{}, fmt.Errorf("no reply within %s", timeout)
	}
	if res.err != nil {
		return spacyResponse{}, fmt.Errorf("read reply: %w", res.err)
	}
	var resp spacyResponse
	if err := json.Unmarshal(res.line, &resp); err != nil {
		return spacyResponse{}, fmt.Errorf("decode reply: %w", err)
	}
	return resp, nil
}

func (s *spacyAnnotator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return nil
	}
	_ = s.stdin.Close()
	err := s.cmd.Wait()
	s.cmd = nil
	s.broken = errWorkerClosed
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func (s *spacyAnnotator) kill() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	_ = s.cmd.Process.Kill()
	_ = s.cmd.Wait()
	s.cmd = nil
	return nil
}
