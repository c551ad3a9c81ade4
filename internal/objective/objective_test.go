package objective

import (
	"math"
	"testing"
)

func TestByNameUnknown(t *testing.T) {
	if _, err := ByName("rastrigin", 0); err == nil {
		t.Fatal("expected error for unknown objective")
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	if len(names) != 3 {
		t.Fatalf("got %d objectives, want 3", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}

func TestSphereImprovesTowardOrigin(t *testing.T) {
	obj, err := ByName("sphere", 0)
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	far := obj.Eval(map[string]any{"x": 3.0, "y": 4.0}, 0)
	near := obj.Eval(map[string]any{"x": 0.1, "y": 0.1}, 0)
	if near >= far {
		t.Fatalf("sphere should reward proximity: near %v, far %v", near, far)
	}
	early := obj.Eval(map[string]any{"x": 1.0, "y": 1.0}, 0)
	late := obj.Eval(map[string]any{"x": 1.0, "y": 1.0}, 9)
	if late >= early {
		t.Fatalf("sphere should tighten with iterations: early %v, late %v", early, late)
	}
}

func TestDecayMatchesFixtureFormula(t *testing.T) {
	obj, err := ByName("decay", 0)
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	got := obj.Eval(map[string]any{"param_a": 2, "param_b": 0.5}, 1)
	if math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("decay(2, 0.5, iter=1): got %v, want 0.5", got)
	}
}

func TestNoisyParabolaDeterministicPerSeed(t *testing.T) {
	a, err := ByName("noisy-parabola", 42)
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	b, err := ByName("noisy-parabola", 42)
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	values := map[string]any{"lr": 0.3}
	for i := 0; i < 10; i++ {
		if a.Eval(values, i) != b.Eval(values, i) {
			t.Fatal("same seed should produce the same noise sequence")
		}
	}
}
