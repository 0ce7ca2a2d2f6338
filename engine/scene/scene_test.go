package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-hybrid/engine/game_object"
	"github.com/go-gl/mathgl/mgl32"
)

func clean(t *testing.T, s Scene) {
	t.Helper()
	_, _, version := s.Snapshot()
	if !s.ClearDirty(version) {
		t.Fatal("ClearDirty() at the current version = false")
	}
}

func TestPayloadMatchesPrimitiveOrder(t *testing.T) {
	s := NewScene()
	a := s.Add(game_object.NewGameObject(game_object.WithPosition(mgl32.Vec3{-3, 0, 0})))
	b := s.Add(game_object.NewGameObject(game_object.WithPosition(mgl32.Vec3{3, 0, 0}), game_object.WithEnabled(false)))
	c := s.Add(game_object.NewGameObject(game_object.WithPosition(mgl32.Vec3{0, 5, 0}), game_object.WithRadius(2)))
	if a != 1 || b != 2 || c != 3 {
		t.Fatalf("ids = %d %d %d, want 1 2 3", a, b, c)
	}

	prims, payload, _ := s.Snapshot()
	if len(prims) != 2 || len(payload) != 2*game_object.GPUSphereSize {
		t.Fatalf("Snapshot() = %d prims, %d bytes", len(prims), len(payload))
	}
	if prims[0].ID != a || prims[1].ID != c {
		t.Errorf("primitive ids = %d %d, want %d %d", prims[0].ID, prims[1].ID, a, c)
	}
	if string(payload[game_object.GPUSphereSize:]) != string(s.Get(c).MarshalSphere()) {
		t.Error("payload slot 1 does not hold the object of primitive 1")
	}
}

func TestDirtyTracking(t *testing.T) {
	s := NewScene()
	if !s.Dirty() {
		t.Fatal("new scene is not dirty")
	}
	clean(t, s)

	id := s.Add(game_object.NewGameObject())
	if !s.Dirty() {
		t.Error("Add did not mark dirty")
	}
	clean(t, s)

	s.Update(0.016)
	if s.Dirty() {
		t.Error("Update without animation marked dirty")
	}
	if !s.Move(id, 1, 2, 3) || !s.Dirty() {
		t.Error("Move did not mark dirty")
	}
	clean(t, s)
	if s.Move(999, 0, 0, 0) || s.Remove(999) || s.Dirty() {
		t.Error("unknown id changed the scene")
	}
	if !s.Remove(id) || !s.Dirty() || s.Count() != 0 {
		t.Error("Remove did not delete and mark dirty")
	}
}

func TestClearDirtyKeepsLaterChanges(t *testing.T) {
	s := NewScene()
	id := s.Add(game_object.NewGameObject())
	_, _, version := s.Snapshot()

	s.Move(id, 0, 40, 0)
	if s.ClearDirty(version) {
		t.Error("ClearDirty() cleared a change made after the snapshot")
	}
	if !s.Dirty() {
		t.Fatal("move made after the snapshot was lost")
	}

	prims, _, next := s.Snapshot()
	if next == version || prims[0].Bounds[0][1] != 39 {
		t.Errorf("snapshot after move = version %d bounds %v", next, prims[0].Bounds)
	}
	if !s.ClearDirty(next) || s.Dirty() {
		t.Error("ClearDirty() at the current version did not clear")
	}
}

func TestDemoScene(t *testing.T) {
	s := NewDemoScene(5)
	if s.Count() != 6 {
		t.Fatalf("Count() = %d, want 6", s.Count())
	}
	ground := s.Objects()[5]
	if ground.Radius() != GroundRadius {
		t.Errorf("last object radius = %v, want ground", ground.Radius())
	}
	clean(t, s)
	s.Update(0.5)
	if !s.Dirty() {
		t.Error("animated demo scene did not turn dirty")
	}
	if GoldenColor(0) == GoldenColor(1) {
		t.Error("neighbouring golden colors match")
	}
	for i := 0; i < 10; i++ {
		for _, ch := range GoldenColor(i) {
			if ch < 0 || ch > 1 {
				t.Fatalf("GoldenColor(%d) = %v out of range", i, GoldenColor(i))
			}
		}
	}
}
