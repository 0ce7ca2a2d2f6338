package model

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestSphere(t *testing.T) {
	m := Sphere(8, 12)
	if got, want := m.VertexCount(), 9*13; got != want {
		t.Errorf("VertexCount() = %d, want %d", got, want)
	}
	if got, want := m.IndexCount(), 8*12*6; got != want {
		t.Errorf("IndexCount() = %d, want %d", got, want)
	}
	if len(m.VertexData()) != m.VertexCount()*GPUVertexSize || len(m.IndexData()) != 4*m.IndexCount() {
		t.Fatalf("data sizes = %d, %d", len(m.VertexData()), len(m.IndexData()))
	}
	if r := m.BoundingRadius(); math.Abs(float64(r-1)) > 1e-5 {
		t.Errorf("BoundingRadius() = %v, want 1", r)
	}
	for i := 0; i < m.IndexCount(); i++ {
		if idx := binary.LittleEndian.Uint32(m.IndexData()[4*i:]); int(idx) >= m.VertexCount() {
			t.Fatalf("index %d = %d out of range", i, idx)
		}
	}
}

func TestSphereClampsTessellation(t *testing.T) {
	m := Sphere(0, 0)
	if m.IndexCount() != 2*3*6 {
		t.Errorf("IndexCount() = %d, want %d", m.IndexCount(), 2*3*6)
	}
}

func TestVertexLayoutMatchesStride(t *testing.T) {
	l := VertexLayout()
	if l.ArrayStride != GPUVertexSize || len(l.Attributes) != 2 || l.Attributes[1].Offset != 12 {
		t.Errorf("VertexLayout() = %+v", l)
	}
	v := GPUVertex{}
	v.Normal[2] = 2
	if got := math.Float32frombits(binary.LittleEndian.Uint32(v.Marshal()[20:])); got != 2 {
		t.Errorf("normal.z = %v, want 2", got)
	}
}
