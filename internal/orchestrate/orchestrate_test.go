// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbvis-ukon/LLMSurver/internal/classify"
	"github.com/dbvis-ukon/LLMSurver/internal/logging"
	"github.com/dbvis-ukon/LLMSurver/internal/metrics"
	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// --- test helpers ---

func testPapers(n int) []types.Paper {
	out := make([]types.Paper, n)
	for i := range out {
		out[i] = types.Paper{ID: int64(i + 1), Title: fmt.Sprintf("paper %d", i+1)}
	}
	return out
}

func request(papers []types.Paper, agents ...string) Request {
	return Request{RunID: 7, Name: "run", Prompt: "is it relevant?", Papers: papers, Agents: agents}
}

// byParity includes even paper ids and discards odd ones.
var byParity = classify.Func(func(_ context.Context, p types.Paper, _, _ string) (classify.Verdict, error) {
	if p.ID%2 == 0 {
		return classify.Verdict{Classification: types.ClassInclude, Answer: "INCLUDE"}, nil
	}
	return classify.Verdict{Classification: types.ClassDiscard, Answer: "DISCARD"}, nil
})

// jittery wraps c with a short random delay to shuffle worker interleavings.
func jittery(c classify.Classifier) classify.Classifier {
	return classify.Func(func(ctx context.Context, p types.Paper, prompt, agent string) (classify.Verdict, error) {
		time.Sleep(time.Duration(rand.IntN(200)) * time.Microsecond)
		return c.Classify(ctx, p, prompt, agent)
	})
}

type recordingSink struct {
	mu      sync.Mutex
	records map[string][]int64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{records: map[string][]int64{}}
}

func (s *recordingSink) Record(_ context.Context, _, paperID int64, resp types.ModelResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[resp.ModelName] = append(s.records[resp.ModelName], paperID)
	return nil
}

func (s *recordingSink) count(agent string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[agent])
}

func waitSettled(t *testing.T, r *Run) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not settle")
	}
}

func responsesBy(papers []types.Paper, agent string) int {
	n := 0
	for _, p := range papers {
		if _, ok := p.Response(agent); ok {
			n++
		}
	}
	return n
}

// --- validation ---

func TestStartValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"no papers", Request{Name: "r", Prompt: "p", Agents: []string{"A"}}, "papers"},
		{"no prompt", Request{Name: "r", Prompt: "  ", Papers: testPapers(1), Agents: []string{"A"}}, "prompt"},
		{"no agents", Request{Name: "r", Prompt: "p", Papers: testPapers(1)}, "agents"},
		{"blank agents", Request{Name: "r", Prompt: "p", Papers: testPapers(1), Agents: []string{"", " "}}, "agents"},
		{"no name", Request{Prompt: "p", Papers: testPapers(1), Agents: []string{"A"}}, "name"},
		{"papers checked first", Request{}, "papers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := classify.Func(func(context.Context, types.Paper, string, string) (classify.Verdict, error) {
				calls.Add(1)
				return classify.Verdict{}, nil
			})
			o := New(c, nil, WithLogger(logging.Discard()))

			run, err := o.Start(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, run)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.NotEmpty(t, ve.Message)
			assert.Nil(t, o.Active())
			assert.Equal(t, int32(0), calls.Load())
		})
	}
}

func TestRequestTarget(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want int
	}{
		{"full", Request{Papers: testPapers(8), Agents: []string{"A", "B"}}, 16},
		{"duplicate agents collapse", Request{Papers: testPapers(3), Agents: []string{"A", "A", " A "}}, 3},
		{"sample default size", Request{Papers: testPapers(8), Agents: []string{"A", "B"}, Sample: true}, 2 * DefaultSampleSize},
		{"sample explicit size", Request{Papers: testPapers(8), Agents: []string{"A"}, Sample: true, SampleSize: 2}, 2},
		{"sample larger than corpus", Request{Papers: testPapers(3), Agents: []string{"A"}, Sample: true, SampleSize: 10}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Target())
		})
	}
}

// --- complete runs ---

func TestRunCompletesWithoutLostResponses(t *testing.T) {
	agents := []string{"A", "B", "C", "D"}
	papers := testPapers(25)
	sink := newRecordingSink()
	o := New(jittery(byParity), sink, WithLogger(logging.Discard()))

	run, err := o.Start(context.Background(), request(papers, agents...))
	require.NoError(t, err)
	require.NotNil(t, run)

	waitSettled(t, run)

	st := run.Status()
	assert.Equal(t, Status{RunID: 7, Completed: 100, Target: 100, Progress: 100, Settled: true, Finished: true}, st)
	assert.Nil(t, o.Active())

	snap := run.Results().Snapshot()
	require.Len(t, snap, len(papers))
	for i, p := range snap {
		assert.Equal(t, papers[i].ID, p.ID, "paper order")
		require.Len(t, p.Responses, len(agents), "paper %d", p.ID)
		for _, a := range agents {
			r, ok := p.Response(a)
			require.True(t, ok)
			if p.ID%2 == 0 {
				assert.Equal(t, types.ClassInclude, r.Classification)
			} else {
				assert.Equal(t, types.ClassDiscard, r.Classification)
			}
		}
	}
	for _, a := range agents {
		assert.Equal(t, len(papers), sink.count(a))
	}
}

func TestWorkerKeepsPaperOrder(t *testing.T) {
	sink := newRecordingSink()
	o := New(jittery(byParity), sink, WithLogger(logging.Discard()))

	run, err := o.Start(context.Background(), request(testPapers(10), "A", "B"))
	require.NoError(t, err)
	run.Wait()

	for _, a := range []string{"A", "B"} {
		assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, sink.records[a])
	}
}

func TestProgressIsMonotoneAndReachesHundred(t *testing.T) {
	for i := range 5 {
		t.Run(fmt.Sprintf("attempt %d", i), func(t *testing.T) {
			o := New(jittery(byParity), nil, WithLogger(logging.Discard()))
			run, err := o.Start(context.Background(), request(testPapers(30), "A", "B", "C"))
			require.NoError(t, err)

			var seen []float64
			for {
				p := run.Progress()
				seen = append(seen, p)
				select {
				case <-run.Done():
					seen = append(seen, run.Progress())
					for j := 1; j < len(seen); j++ {
						require.GreaterOrEqual(t, seen[j], seen[j-1], "progress decreased")
					}
					assert.Equal(t, 100.0, seen[len(seen)-1])
					assert.Equal(t, 90, run.Status().Completed)
					return
				default:
					time.Sleep(50 * time.Microsecond)
				}
			}
		})
	}
}

func TestSampleRunCoversPrefix(t *testing.T) {
	sink := newRecordingSink()
	o := New(byParity, sink, WithLogger(logging.Discard()))

	req := request(testPapers(9), "A", "B")
	req.Sample = true
	req.SampleSize = 3
	run, err := o.Start(context.Background(), req)
	require.NoError(t, err)
	run.Wait()

	assert.Equal(t, 6, run.Status().Target)
	assert.Equal(t, 3, run.Results().Len())
	assert.Equal(t, []int64{1, 2, 3}, sink.records["A"])
}

// --- failures ---

func TestFailuresAreRecordedAsErrors(t *testing.T) {
	c := classify.Func(func(_ context.Context, p types.Paper, _, agent string) (classify.Verdict, error) {
		if agent == "B" {
			return classify.Verdict{}, errors.New("connection refused")
		}
		return classify.Verdict{Classification: types.ClassInclude, Answer: "INCLUDE"}, nil
	})
	sink := newRecordingSink()
	o := New(c, sink, WithLogger(logging.Discard()))

	run, err := o.Start(context.Background(), request(testPapers(4), "A", "B"))
	require.NoError(t, err)
	run.Wait()

	assert.True(t, run.Status().Finished)
	for _, p := range run.Results().Snapshot() {
		r, ok := p.Response("B")
		require.True(t, ok)
		assert.Equal(t, types.ClassError, r.Classification)
		assert.Equal(t, "connection refused", r.Answer)
	}
	assert.Equal(t, 4, sink.count("B"))
}

func TestUnknownVerdictBecomesError(t *testing.T) {
	c := classify.Func(func(context.Context, types.Paper, string, string) (classify.Verdict, error) {
		return classify.Verdict{Classification: types.ClassUnknown, Answer: "hmm"}, nil
	})
	o := New(c, nil, WithLogger(logging.Discard()))

	run, err := o.Start(context.Background(), request(testPapers(2), "A"))
	require.NoError(t, err)
	run.Wait()

	for _, p := range run.Results().Snapshot() {
		require.Len(t, p.Responses, 1)
		assert.Equal(t, types.ClassError, p.Responses[0].Classification)
		assert.Contains(t, p.Responses[0].Answer, "hmm")
	}
}

func TestSinkErrorsDoNotStopTheRun(t *testing.T) {
	m := metrics.New()
	sink := SinkFunc(func(context.Context, int64, int64, types.ModelResponse) error {
		return errors.New("database is locked")
	})
	o := New(byParity, sink, WithLogger(logging.Discard()), WithMetrics(m))

	run, err := o.Start(context.Background(), request(testPapers(6), "A", "B"))
	require.NoError(t, err)
	run.Wait()

	st := run.Status()
	assert.True(t, st.Finished)
	assert.Equal(t, 12, run.Results().Responses())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "llmsurver_sink_errors_total 12")
	assert.Contains(t, rec.Body.String(), `llmsurver_runs_settled_total{outcome="finished"} 1`)
}

func TestProgressGaugeResetsWhenRunSettles(t *testing.T) {
	m := metrics.New()
	release := make(chan struct{})
	c := classify.Func(func(ctx context.Context, p types.Paper, prompt, agent string) (classify.Verdict, error) {
		if p.ID == 2 {
			<-release
		}
		return byParity(ctx, p, prompt, agent)
	})
	o := New(c, nil, WithLogger(logging.Discard()), WithMetrics(m))

	scrape := func() string {
		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		return rec.Body.String()
	}

	run, err := o.Start(context.Background(), request(testPapers(2), "A"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return run.Status().Completed == 1 }, 5*time.Second, time.Millisecond)
	assert.Contains(t, scrape(), "llmsurver_run_progress_percent 50")

	close(release)
	run.Wait()
	assert.Contains(t, scrape(), "llmsurver_run_progress_percent 0")
	assert.Contains(t, scrape(), "llmsurver_runs_active 0")
}

func TestResponseFrom(t *testing.T) {
	tests := []struct {
		name    string
		verdict classify.Verdict
		err     error
		want    types.Classification
		answer  string
	}{
		{"include", classify.Verdict{Classification: types.ClassInclude, Answer: "yes"}, nil, types.ClassInclude, "yes"},
		{"error verdict kept", classify.Verdict{Classification: types.ClassError, Answer: "both"}, nil, types.ClassError, "both"},
		{"call failure", classify.Verdict{}, errors.New("timeout"), types.ClassError, "timeout"},
		{"unknown", classify.Verdict{}, nil, types.ClassError, "model returned no classification (0)"},
		{"out of range", classify.Verdict{Classification: 9, Answer: "x"}, nil, types.ClassError, "model returned no classification (9): x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ResponseFrom("A", tt.verdict, tt.err)
			assert.Equal(t, types.ModelResponse{ModelName: "A", Classification: tt.want, Answer: tt.answer}, r)
		})
	}
}

// --- concurrency control ---

func TestOnlyOneActiveRun(t *testing.T) {
	release := make(chan struct{})
	c := classify.Func(func(context.Context, types.Paper, string, string) (classify.Verdict, error) {
		<-release
		return classify.Verdict{Classification: types.ClassInclude}, nil
	})
	o := New(c, nil, WithLogger(logging.Discard()))

	first, err := o.Start(context.Background(), request(testPapers(2), "A"))
	require.NoError(t, err)
	assert.Equal(t, first, o.Active())

	_, err = o.Start(context.Background(), request(testPapers(2), "B"))
	assert.ErrorIs(t, err, ErrRunActive)

	close(release)
	waitSettled(t, first)

	second, err := o.Start(context.Background(), request(testPapers(2), "B"))
	require.NoError(t, err)
	waitSettled(t, second)
	assert.True(t, second.Status().Finished)
}

func TestCallerContextDoesNotCancelRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var sawCancelled atomic.Bool
	c := classify.Func(func(ctx context.Context, p types.Paper, _, _ string) (classify.Verdict, error) {
		if ctx.Err() != nil {
			sawCancelled.Store(true)
		}
		return classify.Verdict{Classification: types.ClassDiscard}, nil
	})
	o := New(c, nil, WithLogger(logging.Discard()))

	run, err := o.Start(ctx, request(testPapers(5), "A"))
	require.NoError(t, err)
	cancel()
	waitSettled(t, run)

	assert.True(t, run.Status().Finished)
	assert.False(t, sawCancelled.Load())
}

func TestCancelStopsWorkersBetweenPapers(t *testing.T) {
	release := make(chan struct{})
	aBlocked := make(chan struct{})
	bBlocked := make(chan struct{})

	// A blocks while persisting its third response, between papers.
	var aRecords atomic.Int32
	sink := SinkFunc(func(_ context.Context, _, _ int64, resp types.ModelResponse) error {
		if resp.ModelName == "A" && aRecords.Add(1) == 3 {
			close(aBlocked)
			<-release
		}
		return nil
	})

	// B blocks inside the classifier call for its eighth paper.
	c := classify.Func(func(_ context.Context, p types.Paper, _, agent string) (classify.Verdict, error) {
		if agent == "B" && p.ID == 8 {
			close(bBlocked)
			<-release
		}
		return classify.Verdict{Classification: types.ClassInclude, Answer: "INCLUDE"}, nil
	})

	o := New(c, sink, WithLogger(logging.Discard()))
	run, err := o.Start(context.Background(), request(testPapers(10), "A", "B"))
	require.NoError(t, err)

	<-aBlocked
	<-bBlocked
	assert.Equal(t, 10, run.Status().Completed)

	assert.True(t, run.Cancel())
	assert.False(t, run.Cancel(), "second cancel is a no-op")
	close(release)
	waitSettled(t, run)

	snap := run.Results().Snapshot()
	assert.Equal(t, 3, responsesBy(snap, "A"))
	assert.Equal(t, 8, responsesBy(snap, "B"), "in-flight call is recorded")

	st := run.Status()
	assert.Equal(t, 11, st.Completed)
	assert.Equal(t, 20, st.Target)
	assert.Equal(t, 55.0, st.Progress)
	assert.True(t, st.Cancelled)
	assert.True(t, st.Settled)
	assert.False(t, st.Finished)
	assert.False(t, run.Cancel(), "settled run cannot be cancelled")
}

func TestCancelAfterSettleReportsFalse(t *testing.T) {
	o := New(byParity, nil, WithLogger(logging.Discard()))
	run, err := o.Start(context.Background(), request(testPapers(2), "A"))
	require.NoError(t, err)
	run.Wait()

	assert.False(t, run.Cancel())
	assert.False(t, run.Status().Cancelled)
}
