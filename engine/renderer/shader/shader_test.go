package shader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
)

func TestNewParsesEntryPoints(t *testing.T) {
	src := `
struct V { @builtin(position) p: vec4<f32> };
@vertex
fn vert(@builtin(vertex_index) i: u32) -> V { var v: V; return v; }
@fragment fn frag() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`
	s := New("pair", src)
	if got := s.EntryPoint(StageVertex); got != "vert" {
		t.Errorf("EntryPoint(vertex) = %q, want %q", got, "vert")
	}
	if got := s.EntryPoint(StageFragment); got != "frag" {
		t.Errorf("EntryPoint(fragment) = %q, want %q", got, "frag")
	}
	if got := s.EntryPoint(StageCompute); got != "" {
		t.Errorf("EntryPoint(compute) = %q, want empty", got)
	}
	if got := s.WorkgroupSize(); got != [3]uint32{} {
		t.Errorf("WorkgroupSize() = %v, want zero for a render program", got)
	}
}

func TestWorkgroupSize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want [3]uint32
	}{
		{"xy", "@compute @workgroup_size(8, 8) fn main() {}", [3]uint32{8, 8, 1}},
		{"x", "@compute @workgroup_size(64) fn main() {}", [3]uint32{64, 1, 1}},
		{"xyz", "@compute @workgroup_size(4, 2, 2) fn main() {}", [3]uint32{4, 2, 2}},
		{"missing", "@compute fn main() {}", [3]uint32{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New("k", tt.src).WorkgroupSize(); got != tt.want {
				t.Errorf("WorkgroupSize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommentedDeclarationsAreIgnored(t *testing.T) {
	src := `
// @compute @workgroup_size(1) fn wrong() {}
/* @compute @workgroup_size(2) /* nested */ fn also_wrong() {} */
@compute @workgroup_size(16, 4) fn right() {}
`
	s := New("k", src)
	if got := s.EntryPoint(StageCompute); got != "right" {
		t.Errorf("EntryPoint(compute) = %q, want %q", got, "right")
	}
	if got := s.WorkgroupSize(); got != [3]uint32{16, 4, 1} {
		t.Errorf("WorkgroupSize() = %v, want [16 4 1]", got)
	}
}

func TestLibraryBuiltins(t *testing.T) {
	lib, err := NewLibrary()
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	for _, key := range []string{KeyGBuffer, KeyRaytrace, KeyComposition} {
		if _, ok := lib.Source(key); !ok {
			t.Errorf("built-in %q missing, keys = %v", key, lib.Keys())
		}
	}

	rt, err := lib.Shader(KeyRaytrace)
	if err != nil {
		t.Fatalf("Shader(raytrace) error = %v", err)
	}
	if got := rt.EntryPoint(StageCompute); got != "main" {
		t.Errorf("raytrace entry = %q, want main", got)
	}
	if got := rt.WorkgroupSize(); got != [3]uint32{8, 8, 1} {
		t.Errorf("raytrace workgroup = %v, want [8 8 1]", got)
	}

	for _, key := range []string{KeyGBuffer, KeyComposition} {
		s, err := lib.Shader(key)
		if err != nil {
			t.Fatalf("Shader(%s) error = %v", key, err)
		}
		if s.EntryPoint(StageVertex) != "vs_main" || s.EntryPoint(StageFragment) != "fs_main" {
			t.Errorf("%s entries = %q/%q, want vs_main/fs_main", key, s.EntryPoint(StageVertex), s.EntryPoint(StageFragment))
		}
	}
}

func TestLibrarySetAndLoadFile(t *testing.T) {
	lib, err := NewLibrary(WithSource("extra", "@compute @workgroup_size(1) fn main() {}"))
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	if _, ok := lib.Source("extra"); !ok {
		t.Fatal("WithSource program missing")
	}
	if got := lib.Revision("extra"); got != 0 {
		t.Errorf("Revision() = %d, want 0 before any Set", got)
	}

	lib.Set("extra", "@compute @workgroup_size(2) fn main() {}")
	if got := lib.Revision("extra"); got != 1 {
		t.Errorf("Revision() = %d, want 1", got)
	}

	file := filepath.Join(t.TempDir(), "extra.wgsl")
	if err := os.WriteFile(file, []byte("@compute @workgroup_size(4) fn main() {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := lib.LoadFile("extra", file); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	s, _ := lib.Shader("extra")
	if got := s.WorkgroupSize(); got != [3]uint32{4, 1, 1} {
		t.Errorf("WorkgroupSize() after LoadFile = %v, want [4 1 1]", got)
	}

	if err := lib.LoadFile("missing", filepath.Join(t.TempDir(), "nope.wgsl")); err == nil {
		t.Error("LoadFile() of a missing file returned nil error")
	}
	if _, err := lib.Shader("missing"); err == nil {
		t.Error("Shader() of an unregistered key returned nil error")
	}
}

func TestNagaValidatorRejectsBrokenSource(t *testing.T) {
	err := NagaValidator{}.Validate("broken", "@compute @workgroup_size(1) fn main( {")
	if err == nil {
		t.Fatal("Validate() returned nil for malformed source")
	}
	var compileErr *common.ShaderCompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("Validate() error = %T, want *common.ShaderCompileError", err)
	}
	if compileErr.Shader != "broken" {
		t.Errorf("Shader = %q, want broken", compileErr.Shader)
	}
	if len(compileErr.Diagnostics) == 0 {
		t.Error("Diagnostics is empty")
	}
}

func TestDiagnostics(t *testing.T) {
	got := Diagnostics(errors.New("line 1: bad token\n\n   line 2: expected ')'  \n"))
	want := []string{"line 1: bad token", "line 2: expected ')'"}
	if len(got) != len(want) {
		t.Fatalf("Diagnostics() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Diagnostics()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if Diagnostics(nil) != nil {
		t.Error("Diagnostics(nil) != nil")
	}
}
