// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrate runs every selected agent over a paper list in
// parallel, one worker per agent, with live progress, cooperative
// cancellation and a join point.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/dbvis-ukon/LLMSurver/internal/classify"
	"github.com/dbvis-ukon/LLMSurver/internal/metrics"
	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// ErrRunActive is returned when a run is started while another is in progress.
var ErrRunActive = errors.New("a run is already in progress")

// Sink persists each response as soon as a worker produces it.
type Sink interface {
	Record(ctx context.Context, runID, paperID int64, resp types.ModelResponse) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, runID, paperID int64, resp types.ModelResponse) error

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, runID, paperID int64, resp types.ModelResponse) error {
	return f(ctx, runID, paperID, resp)
}

// Orchestrator starts runs. At most one run is in progress at a time.
type Orchestrator struct {
	classifier classify.Classifier
	sink       Sink
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu     sync.Mutex
	active *Run
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator. A nil sink keeps responses in memory only.
func New(c classify.Classifier, sink Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{classifier: c, sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Active returns the run in progress, or nil.
func (o *Orchestrator) Active() *Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Start validates req and launches one worker per agent. It returns
// immediately; use Run.Wait or Run.Done to join. A request with nothing
// to do returns a nil run and no error.
//
// Values from ctx reach the classifier, but cancelling ctx does not stop
// the run. Only Run.Cancel does.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	papers, agents := req.papers(), req.AgentNames()
	target := len(papers) * len(agents)
	if target < 1 {
		return nil, nil
	}

	o.mu.Lock()
	if o.active != nil {
		o.mu.Unlock()
		return nil, ErrRunActive
	}
	run := newRun(req.RunID, target, papers)
	o.active = run
	o.mu.Unlock()

	o.metrics.RunStarted(req.RunType())
	o.metrics.TrackProgress(run.Progress)

	log := o.logger.With("run", req.RunID)
	log.Info("run started", "name", req.Name, "type", req.RunType().String(), "agents", len(agents), "papers", len(papers), "target", target)

	callCtx := context.WithoutCancel(ctx)
	var wg conc.WaitGroup
	for _, agent := range agents {
		w := &worker{
			run:        run,
			agent:      agent,
			prompt:     req.Prompt,
			papers:     papers,
			classifier: o.classifier,
			sink:       o.sink,
			logger:     log.With("agent", agent),
			metrics:    o.metrics,
		}
		wg.Go(func() { w.loop(callCtx) })
	}

	go func() {
		wg.Wait()
		o.metrics.TrackProgress(nil)

		o.mu.Lock()
		if o.active == run {
			o.active = nil
		}
		o.mu.Unlock()

		st := run.markSettled()
		o.metrics.RunSettled(st.Finished)
		log.Info("run settled", "completed", st.Completed, "target", st.Target, "cancelled", st.Cancelled, "finished", st.Finished)
		run.close()
	}()

	return run, nil
}

// ResponseFrom turns the outcome of one classifier call into the response
// stored for the agent. Failures and verdicts without a classification
// become error responses.
func ResponseFrom(agent string, v classify.Verdict, err error) types.ModelResponse {
	switch {
	case err != nil:
		return types.ModelResponse{ModelName: agent, Classification: types.ClassError, Answer: err.Error()}
	case v.Classification == types.ClassUnknown || !v.Classification.Valid():
		answer := fmt.Sprintf("model returned no classification (%d)", int(v.Classification))
		if v.Answer != "" {
			answer += ": " + v.Answer
		}
		return types.ModelResponse{ModelName: agent, Classification: types.ClassError, Answer: answer}
	default:
		return types.ModelResponse{ModelName: agent, Classification: v.Classification, Answer: v.Answer}
	}
}

// worker runs one agent over the paper list in order.
type worker struct {
	run        *Run
	agent      string
	prompt     string
	papers     []types.Paper
	classifier classify.Classifier
	sink       Sink
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func (w *worker) loop(ctx context.Context) {
	for _, p := range w.papers {
		if w.run.stopped() {
			w.logger.Info("worker stopped", "reason", "cancelled")
			return
		}

		verdict, err := w.classifier.Classify(ctx, p, w.prompt, w.agent)
		resp := ResponseFrom(w.agent, verdict, err)
		if err != nil {
			w.logger.Warn("classification failed", "paper", p.ID, "error", err)
		} else {
			w.logger.Debug("paper classified", "paper", p.ID, "classification", resp.Classification.String())
		}

		appended := true
		if err := w.run.results.Append(p.ID, resp); err != nil {
			appended = false
			w.logger.Warn("response not recorded", "paper", p.ID, "error", err)
		}
		w.run.completed.Add(1)

		if !appended {
			continue
		}
		w.metrics.Response(w.agent, resp.Classification)
		if w.sink == nil {
			continue
		}
		if err := w.sink.Record(ctx, w.run.id, p.ID, resp); err != nil {
			w.metrics.SinkError()
			w.logger.Warn("persisting response failed", "paper", p.ID, "error", err)
		}
	}
}
