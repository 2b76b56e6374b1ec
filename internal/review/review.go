// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review is the operator session: it starts and cancels runs, keeps
// the loaded run and the consensus set, and derives the consensus view.
//
// At most one run is in progress. While the loaded run is in progress, views
// are computed from the live result store; once it settles the next view
// reloads the run from the database.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dbvis-ukon/LLMSurver/internal/classify"
	"github.com/dbvis-ukon/LLMSurver/internal/consensus"
	"github.com/dbvis-ukon/LLMSurver/internal/export"
	"github.com/dbvis-ukon/LLMSurver/internal/metrics"
	"github.com/dbvis-ukon/LLMSurver/internal/orchestrate"
	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// DefaultPrompt is the prompt template offered for new runs. The
// placeholders in capitals are meant to be replaced by the operator.
const DefaultPrompt = `You are a professor in computer science conducting a literature review.
Please decide and classify if the following paper belongs to a specific research direction or not.
For this, you are provided with the title and the abstract, which should give you sufficient information for an informed and accurate decision.
The research direction is the topic of 'TITEL'.
Therefore include papers that deal with ASPECT1, ASPECT2, ... Examples of ASPECT1 are: term 1, term 2.

You MUST discard papers that EXCLUSION_EXCEPTION_1,EXCLUSION_EXCEPTION_2,...

You MUST include papers that INCLUSION_EXCEPTION_1, INCLUSION_EXCEPTION_2, ...`

// Repository is the persistence the service needs. *store.Store implements it.
type Repository interface {
	orchestrate.Sink
	ListPapers(ctx context.Context) ([]types.Paper, error)
	PapersByID(ctx context.Context, ids []int64) ([]types.Paper, error)
	GetPaper(ctx context.Context, id int64) (types.Paper, error)
	ModelByName(ctx context.Context, name string) (types.Model, error)
	CreateRun(ctx context.Context, r types.Run) (types.Run, error)
	GetRun(ctx context.Context, id int64) (types.Run, error)
	DeleteRun(ctx context.Context, id int64) (bool, error)
	RunPapers(ctx context.Context, id int64) ([]types.Paper, error)
}

// StartRequest asks for a new run.
type StartRequest struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
	// PaperIDs selects the papers; empty means the whole corpus.
	PaperIDs []int64  `json:"paper_ids,omitempty"`
	Models   []string `json:"models"`
	Sample   bool     `json:"sample"`
}

// View is everything a consumer displays for the loaded run under the
// current consensus set.
type View struct {
	Run          *types.Run              `json:"run,omitempty"`
	Models       []string                `json:"models"`
	Consensus    []string                `json:"consensus"`
	Papers       []types.Paper           `json:"papers"`
	Statistics   consensus.Statistics    `json:"statistics"`
	Agreement    consensus.Matrix        `json:"agreement"`
	Distribution []consensus.AgentCounts `json:"distribution"`
	Progress     *orchestrate.Status     `json:"progress,omitempty"`
}

// loaded is the run currently shown.
type loaded struct {
	run    types.Run
	papers []types.Paper
	models []string
	// stale marks papers that no longer reflect the database.
	stale bool
}

// Service owns the session state. It is safe for concurrent use.
type Service struct {
	repo       Repository
	classifier classify.Classifier
	orch       *orchestrate.Orchestrator
	logger     *slog.Logger
	metrics    *metrics.Metrics
	sampleSize int

	mu      sync.Mutex
	current *loaded
	set     []string
	live    *orchestrate.Run
	last    *orchestrate.Run
	// started is the record of the run most recently started.
	started loaded
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSampleSize sets how many papers a sample run covers.
func WithSampleSize(n int) Option {
	return func(s *Service) { s.sampleSize = n }
}

// New creates a session over repo, classifying through c.
func New(repo Repository, c classify.Classifier, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		classifier: c,
		logger:     slog.Default(),
		sampleSize: orchestrate.DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", uuid.NewString())
	s.orch = orchestrate.New(c, repo, orchestrate.WithLogger(s.logger), orchestrate.WithMetrics(s.metrics))
	return s
}

// StartRun validates the request, records the run and launches it. It
// returns the new run id.
func (s *Service) StartRun(ctx context.Context, req StartRequest) (int64, error) {
	papers, err := s.selectPapers(ctx, req.PaperIDs)
	if err != nil {
		return 0, err
	}

	oreq := orchestrate.Request{
		Name:       req.Name,
		Prompt:     req.Prompt,
		Papers:     papers,
		Agents:     req.Models,
		Sample:     req.Sample,
		SampleSize: s.sampleSize,
	}
	if err := oreq.Validate(); err != nil {
		return 0, err
	}
	agents := oreq.AgentNames()
	for _, a := range agents {
		if _, err := s.repo.ModelByName(ctx, a); err != nil {
			return 0, &orchestrate.ValidationError{Field: "agents", Message: fmt.Sprintf("unknown model %s", a)}
		}
	}
	if s.orch.Active() != nil {
		return 0, orchestrate.ErrRunActive
	}

	run, err := s.repo.CreateRun(ctx, types.Run{Alias: req.Name, Type: oreq.RunType(), Prompt: req.Prompt})
	if err != nil {
		return 0, fmt.Errorf("creating run: %w", err)
	}
	oreq.RunID = run.ID

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.orch.Start(ctx, oreq)
	if err != nil {
		if _, derr := s.repo.DeleteRun(context.WithoutCancel(ctx), run.ID); derr != nil {
			s.logger.Warn("removing unstarted run failed", "run", run.ID, "error", derr)
		}
		return 0, err
	}

	run.Models = agents
	s.live, s.last = r, r
	s.started = loaded{run: run, models: agents}
	s.current = &loaded{run: run, models: agents}
	s.set = slices.Clone(agents)
	return run.ID, nil
}

func (s *Service) selectPapers(ctx context.Context, ids []int64) ([]types.Paper, error) {
	if len(ids) == 0 {
		papers, err := s.repo.ListPapers(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading papers: %w", err)
		}
		return papers, nil
	}
	papers, err := s.repo.PapersByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading papers: %w", err)
	}
	return papers, nil
}

// ClassifyOne classifies a single paper with one agent outside the
// orchestrator and stores the response in the run. A classifier failure
// is stored as an error response; a storage failure is returned.
// The run in progress is refused with ErrRunActive.
func (s *Service) ClassifyOne(ctx context.Context, agent, prompt string, paperID, runID int64) (types.ModelResponse, error) {
	if r := s.orch.Active(); r != nil && r.ID() == runID {
		return types.ModelResponse{}, orchestrate.ErrRunActive
	}
	paper, err := s.repo.GetPaper(ctx, paperID)
	if err != nil {
		return types.ModelResponse{}, err
	}

	v, cerr := s.classifier.Classify(ctx, paper, prompt, agent)
	resp := orchestrate.ResponseFrom(agent, v, cerr)
	if cerr != nil {
		s.logger.Warn("classification failed", "run", runID, "agent", agent, "paper", paperID, "error", cerr)
	}

	if err := s.repo.Record(ctx, runID, paperID, resp); err != nil {
		return resp, fmt.Errorf("storing response: %w", err)
	}

	s.mu.Lock()
	if s.current != nil && s.current.run.ID == runID {
		s.current.stale = true
	}
	s.mu.Unlock()
	return resp, nil
}

// CancelRun signals the run in progress to stop. It reports false when no
// run is in progress.
func (s *Service) CancelRun() bool {
	r := s.orch.Active()
	if r == nil {
		return false
	}
	ok := r.Cancel()
	if ok {
		s.logger.Info("run cancelled", "run", r.ID())
	}
	return ok
}

// ActiveRun returns the run in progress, or nil.
func (s *Service) ActiveRun() *orchestrate.Run {
	return s.orch.Active()
}

// Progress reports the state of the most recent run started in this
// session. Before any run it returns the zero Status.
func (s *Service) Progress() orchestrate.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return orchestrate.Status{}
	}
	return s.last.Status()
}

// LoadRun makes runID the loaded run and resets the consensus set to all
// of its models. Corpus papers the run did not reach are listed after the
// run papers with an unknown placeholder response per model.
func (s *Service) LoadRun(ctx context.Context, runID int64) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.liveLocked() && s.live.ID() == runID {
		s.current = &loaded{run: s.started.run, models: s.started.models}
		s.set = slices.Clone(s.current.models)
		return s.viewLocked(ctx)
	}

	cur, err := s.fetch(ctx, runID)
	if err != nil {
		return View{}, err
	}
	if s.live != nil && !s.liveLocked() {
		s.live = nil
	}
	s.current = cur
	s.set = slices.Clone(cur.models)
	return s.viewLocked(ctx)
}

func (s *Service) fetch(ctx context.Context, runID int64) (*loaded, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	papers, err := s.repo.RunPapers(ctx, runID)
	if err != nil {
		return nil, err
	}
	corpus, err := s.repo.ListPapers(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading papers: %w", err)
	}
	return &loaded{run: run, models: run.Models, papers: pad(papers, corpus, run.Models)}, nil
}

// pad appends the corpus papers missing from papers, each with an unknown
// response per model.
func pad(papers, corpus []types.Paper, models []string) []types.Paper {
	have := make(map[int64]bool, len(papers))
	for _, p := range papers {
		have[p.ID] = true
	}
	out := slices.Clone(papers)
	for _, p := range corpus {
		if have[p.ID] {
			continue
		}
		p = p.Clone()
		p.Responses = make([]types.ModelResponse, len(models))
		for i, m := range models {
			p.Responses[i] = types.ModelResponse{ModelName: m, Classification: types.ClassUnknown}
		}
		out = append(out, p)
	}
	return out
}

// DeleteRun removes a run and its entries. It refuses to delete the run in
// progress and reports false when the run does not exist.
func (s *Service) DeleteRun(ctx context.Context, runID int64) (bool, error) {
	if r := s.orch.Active(); r != nil && r.ID() == runID {
		return false, orchestrate.ErrRunActive
	}
	ok, err := s.repo.DeleteRun(ctx, runID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.current != nil && s.current.run.ID == runID {
		s.current, s.set = nil, nil
	}
	s.mu.Unlock()
	return ok, nil
}

// SetConsensus replaces the consensus set. Every member must be a model of
// the loaded run; repeated names are collapsed.
func (s *Service) SetConsensus(ctx context.Context, set []string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var models []string
	if s.current != nil {
		models = s.current.models
	}
	next := []string{}
	for _, m := range set {
		m = strings.TrimSpace(m)
		if m == "" || slices.Contains(next, m) {
			continue
		}
		if !slices.Contains(models, m) {
			return View{}, &orchestrate.ValidationError{Field: "consensus", Message: fmt.Sprintf("model %s is not part of the loaded run", m)}
		}
		next = append(next, m)
	}
	s.set = next
	return s.viewLocked(ctx)
}

// View returns the loaded run under the current consensus set, or the bare
// corpus when no run is loaded.
func (s *Service) View(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(ctx)
}

// liveLocked reports whether the session's run is still in progress.
func (s *Service) liveLocked() bool {
	return s.live != nil && !s.live.Status().Settled
}

// showingLive reports whether the loaded run is the run in progress.
func (s *Service) showingLive() bool {
	return s.liveLocked() && s.current != nil && s.current.run.ID == s.live.ID()
}

func (s *Service) viewLocked(ctx context.Context) (View, error) {
	if s.showingLive() {
		st := s.live.Status()
		run := s.current.run
		return s.build(&run, s.current.models, s.live.Results().Snapshot(), &st), nil
	}

	if s.live != nil && !s.liveLocked() {
		// The run settled since the last view.
		if s.current != nil && s.current.run.ID == s.live.ID() {
			s.current.stale = true
		}
		s.live = nil
	}

	if s.current == nil {
		corpus, err := s.repo.ListPapers(ctx)
		if err != nil {
			return View{}, fmt.Errorf("loading papers: %w", err)
		}
		return s.build(nil, []string{}, corpus, nil), nil
	}

	if s.current.stale || s.current.papers == nil {
		cur, err := s.fetch(ctx, s.current.run.ID)
		if err != nil {
			return View{}, fmt.Errorf("reloading run %d: %w", s.current.run.ID, err)
		}
		s.current = cur
	}

	run := s.current.run
	return s.build(&run, s.current.models, s.current.papers, nil), nil
}

func (s *Service) build(run *types.Run, models []string, papers []types.Paper, st *orchestrate.Status) View {
	set := slices.Clone(s.set)
	if set == nil {
		set = []string{}
	}
	result := consensus.Compute(papers, set)
	return View{
		Run:          run,
		Models:       slices.Clone(models),
		Consensus:    set,
		Papers:       result.Papers,
		Statistics:   result.Statistics,
		Agreement:    consensus.Agreement(papers, set),
		Distribution: consensus.Distribution(papers, set),
		Progress:     st,
	}
}

// Export builds the export document of a run under the session's consensus
// set when the run is loaded, or under all of its models otherwise. A zero
// runID exports the corpus.
func (s *Service) Export(ctx context.Context, runID int64) (export.Document, error) {
	if runID == 0 {
		corpus, err := s.repo.ListPapers(ctx)
		if err != nil {
			return export.Document{}, fmt.Errorf("loading papers: %w", err)
		}
		return export.Document{Papers: corpus}, nil
	}

	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return export.Document{}, err
	}
	papers, err := s.repo.RunPapers(ctx, runID)
	if err != nil {
		return export.Document{}, err
	}

	set := run.Models
	s.mu.Lock()
	if s.current != nil && s.current.run.ID == runID {
		set = slices.Clone(s.set)
	}
	s.mu.Unlock()
	if set == nil {
		set = []string{}
	}

	result := consensus.Compute(papers, set)
	return export.Document{Run: &run, Consensus: set, Statistics: &result.Statistics, Papers: result.Papers}, nil
}
