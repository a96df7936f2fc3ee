package apbf

import "testing"

func TestAddAndContains(t *testing.T) {
	f := NewFilter(3, 100, 3)
	data := []byte("inventory-hash-1")

	if f.Contains(data) {
		t.Fatal("unexpected hit before Add")
	}
	f.Add(data)
	if !f.Contains(data) {
		t.Fatal("expected hit after Add")
	}
}

func TestRotationForgetsOldGenerations(t *testing.T) {
	f := NewFilter(2, 4, 3)
	first := []byte("first")
	f.Add(first)

	// Force enough rotations that the generation holding "first" cycles all
	// the way back around and is wiped.
	for i := 0; i < 20; i++ {
		f.Add([]byte{byte(i)})
	}

	if f.Contains(first) {
		t.Fatal("expected old entry to have aged out after full rotation")
	}
}
