package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-hybrid/engine/accel"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/frame"
)

type stubOrchestrator struct {
	mu     sync.Mutex
	frames int
	size   [2]uint32
	render func(n int) error
}

func (s *stubOrchestrator) RenderFrame(ctx context.Context, dt float32) (frame.Report, error) {
	if err := ctx.Err(); err != nil {
		return frame.Report{}, err
	}
	s.mu.Lock()
	s.frames++
	n := s.frames
	s.mu.Unlock()
	if s.render != nil {
		if err := s.render(n); err != nil {
			return frame.Report{Frame: uint64(n)}, err
		}
	}
	return frame.Report{Frame: uint64(n), States: []frame.State{frame.StateIdle}}, nil
}

func (s *stubOrchestrator) Resize(width, height uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.size = [2]uint32{width, height}
}

func (s *stubOrchestrator) Size() (uint32, uint32) { return s.size[0], s.size[1] }
func (s *stubOrchestrator) SetBlend(float32)       {}
func (s *stubOrchestrator) Tree() *accel.Tree      { return nil }
func (s *stubOrchestrator) Generation() uint64     { return 0 }
func (s *stubOrchestrator) Release()               {}

func (s *stubOrchestrator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func TestRunStopsAfterMaxFrames(t *testing.T) {
	orch := &stubOrchestrator{}
	var reports atomic.Int32
	e := NewEngine(orch, WithMaxFrames(5))
	e.SetFrameCallback(func(frame.Report) { reports.Add(1) })

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if orch.count() != 5 || reports.Load() != 5 {
		t.Errorf("frames = %d reports = %d, want 5 and 5", orch.count(), reports.Load())
	}
}

func TestFatalFrameErrorStopsRun(t *testing.T) {
	fatal := errors.New("device lost")
	orch := &stubOrchestrator{render: func(n int) error {
		if n == 3 {
			return fatal
		}
		return nil
	}}
	e := NewEngine(orch)
	if err := e.Run(context.Background()); !errors.Is(err, fatal) {
		t.Errorf("Run() error = %v, want %v", err, fatal)
	}
	if orch.count() != 3 {
		t.Errorf("frames = %d, want 3", orch.count())
	}
}

func TestRenderPanicIsRecovered(t *testing.T) {
	orch := &stubOrchestrator{render: func(int) error { panic("boom") }}
	err := NewEngine(orch).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Run() error = %v, want recovered panic", err)
	}
}

func TestContextCancelStopsCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	orch := &stubOrchestrator{render: func(n int) error {
		if n == 2 {
			cancel()
		}
		return nil
	}}
	if err := NewEngine(orch).Run(ctx); err != nil {
		t.Errorf("Run() error = %v, want nil after cancel", err)
	}
}

func TestQuitFromTickCallback(t *testing.T) {
	orch := &stubOrchestrator{}
	e := NewEngine(orch, WithTickRate(1000), WithRenderFrameLimit(1000))
	var ticks atomic.Int32
	e.SetTickCallback(func(float32) {
		if ticks.Add(1) == 3 {
			e.Quit()
		}
	})

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after Quit")
	}
	e.Quit()
}

func TestSetTickRateDefaults(t *testing.T) {
	e := NewEngine(&stubOrchestrator{}).(*engine)
	e.SetTickRate(0)
	if e.engineTickRate != time.Second/60 {
		t.Errorf("engineTickRate = %v, want 60Hz", e.engineTickRate)
	}
	e.SetRenderFrameLimit(0)
	if e.renderFrameLimit != 0 {
		t.Errorf("renderFrameLimit = %v, want uncapped", e.renderFrameLimit)
	}
}
