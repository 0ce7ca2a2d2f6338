package profiler

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-hybrid/engine/accel"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/frame"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
	"github.com/go-gl/mathgl/mgl32"
)

func TestTickReportsAtInterval(t *testing.T) {
	var sink bytes.Buffer
	log.SetSink(&sink)
	log.SetLevel(log.Info)
	t.Cleanup(func() {
		log.SetSink(os.Stdout)
		log.SetLevel(log.Notice)
	})

	clock := time.Unix(0, 0)
	p := NewProfiler(WithInterval(time.Second))
	p.now = func() time.Time { return clock }
	p.lastTime = clock

	for i := 0; i < 9; i++ {
		clock = clock.Add(100 * time.Millisecond)
		if s := p.Tick(frame.Report{Rebuilt: i == 0}); s != nil {
			t.Fatalf("Tick() reported early at frame %d", i)
		}
	}
	clock = clock.Add(100 * time.Millisecond)
	s := p.Tick(frame.Report{Degraded: true})
	if s == nil {
		t.Fatal("Tick() did not report after the interval")
	}
	if s.Frames != 10 || s.Rebuilds != 1 || s.Degraded != 1 || s.FPS != 10 {
		t.Errorf("Sample = %+v, want 10 frames, 1 rebuild, 1 degraded, 10 fps", s)
	}
	if !strings.Contains(sink.String(), "FPS: 10.00") {
		t.Errorf("log output %q has no FPS line", sink.String())
	}
}

func TestBuildStatsTable(t *testing.T) {
	b, err := accel.NewBuilder(accel.WithWorkers(1))
	if err != nil {
		t.Fatal(err)
	}
	prims := make([]accel.Primitive, 10)
	for i := range prims {
		c := mgl32.Vec3{float32(i) * 3, 0, 0}
		prims[i] = accel.Primitive{ID: uint64(i), Bounds: accel.AABB{c.Sub(mgl32.Vec3{1, 1, 1}), c.Add(mgl32.Vec3{1, 1, 1})}}
	}
	tree, err := b.Build(prims)
	if err != nil {
		t.Fatal(err)
	}
	out := BuildStatsTable(tree, b)
	for _, want := range []string{"Primitives", "| 10", "SAH buckets", "| 12", "Build time"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestResourceAndPipelineTables(t *testing.T) {
	out := ResourceStatsTable(resource.Stats{
		Counts:      map[resource.Kind]int{resource.KindBuffer: 3, resource.KindTexture: 1},
		BufferBytes: 2048,
	})
	for _, want := range []string{"buffer", "2.0 kb", "Total"} {
		if !strings.Contains(out, want) {
			t.Errorf("resource table missing %q:\n%s", want, out)
		}
	}

	out = PipelineStatsTable(pipeline.Stats{Render: 2, Compute: 1, Names: []string{"composition", "gbuffer", "raytrace"}})
	if !strings.Contains(out, "raytrace") || !strings.Contains(out, "2 render, 1 compute") {
		t.Errorf("pipeline table:\n%s", out)
	}
}

func TestFmtBytes(t *testing.T) {
	tests := map[uint64]string{12: "12 b", 1536: "1.5 kb", 3 << 20: "3.0 mb"}
	for in, want := range tests {
		if got := fmtBytes(in); got != want {
			t.Errorf("fmtBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
