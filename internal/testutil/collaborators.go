package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/vk/grmgo/internal/graphspec"
	"github.com/vk/grmgo/internal/manifest"
	"github.com/vk/grmgo/internal/workflow"
)

// AlignCall records one invocation of the fake aligner.
type AlignCall struct {
	Sample     string
	GraphIndex int
	Start      time.Time
	End        time.Time
}

// FakeAligner is an in-memory workflow.Aligner that records every session
// open, align call and close. Delay and FailOn, when set, inject per-pair
// latency and failures; OpenFailOn injects session-open failures.
type FakeAligner struct {
	Delay      func(sample string, graphIndex int) time.Duration
	FailOn     func(sample string, graphIndex int) error
	OpenFailOn func(sample string) error

	mu     sync.Mutex
	calls  []AlignCall
	opened []string
	closed []string
}

// OpenSample implements workflow.Aligner.
func (f *FakeAligner) OpenSample(_ context.Context, sample *manifest.Sample) (workflow.SampleSession, error) {
	if f.OpenFailOn != nil {
		if err := f.OpenFailOn(sample.Name); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	f.opened = append(f.opened, sample.Name)
	f.mu.Unlock()
	return &fakeAlignSession{aligner: f, sample: sample}, nil
}

// fakeAlignSession is one opened sample of a FakeAligner.
type fakeAlignSession struct {
	aligner *FakeAligner
	sample  *manifest.Sample
}

// Align implements workflow.SampleSession.
func (s *fakeAlignSession) Align(_ context.Context, graph graphspec.Spec, _ string) (json.RawMessage, error) {
	f := s.aligner
	start := time.Now()
	if f.Delay != nil {
		time.Sleep(f.Delay(s.sample.Name, graph.Index))
	}
	var err error
	if f.FailOn != nil {
		err = f.FailOn(s.sample.Name, graph.Index)
	}

	f.mu.Lock()
	f.calls = append(f.calls, AlignCall{Sample: s.sample.Name, GraphIndex: graph.Index, Start: start, End: time.Now()})
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	payload := fmt.Sprintf(`{"sample":%q,"graph":%d}`, s.sample.Name, graph.Index)
	return json.RawMessage(payload), nil
}

// Close implements workflow.SampleSession.
func (s *fakeAlignSession) Close() error {
	f := s.aligner
	f.mu.Lock()
	f.closed = append(f.closed, s.sample.Name)
	f.mu.Unlock()
	return nil
}

// Calls returns a copy of the recorded invocations.
func (f *FakeAligner) Calls() []AlignCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AlignCall(nil), f.calls...)
}

// Opened returns the sample names of every opened session, in open order.
func (f *FakeAligner) Opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

// Closed returns the sample names of every closed session, in close order.
func (f *FakeAligner) Closed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.closed...)
}

// GenotypeCall records one invocation of the fake genotyper, including the
// aligned row it was handed.
type GenotypeCall struct {
	GraphIndex  int
	SampleCount int
	Row         []workflow.AlignedSample
	Start       time.Time
	End         time.Time
}

// FakeGenotyper is an in-memory workflow.Genotyper that records every call
// and emits a small record identifying the graph.
type FakeGenotyper struct {
	Delay  func(graphIndex int) time.Duration
	FailOn func(graphIndex int) error

	mu    sync.Mutex
	calls []GenotypeCall
}

// Genotype implements workflow.Genotyper.
func (f *FakeGenotyper) Genotype(_ context.Context, graph graphspec.Spec, _, _ string, samples []workflow.AlignedSample) (json.RawMessage, error) {
	start := time.Now()
	if f.Delay != nil {
		time.Sleep(f.Delay(graph.Index))
	}
	var err error
	if f.FailOn != nil {
		err = f.FailOn(graph.Index)
	}

	f.mu.Lock()
	f.calls = append(f.calls, GenotypeCall{
		GraphIndex:  graph.Index,
		SampleCount: len(samples),
		Row:         append([]workflow.AlignedSample(nil), samples...),
		Start:       start,
		End:         time.Now(),
	})
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	record := fmt.Sprintf(`{"graph":%d,"samples":%d}`, graph.Index, len(samples))
	return json.RawMessage(record), nil
}

// Calls returns a copy of the recorded invocations.
func (f *FakeGenotyper) Calls() []GenotypeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]GenotypeCall(nil), f.calls...)
}
