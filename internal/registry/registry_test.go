package registry

import (
	"errors"
	"testing"
)

func TestResolve_KnownModels(t *testing.T) {
	r := New()

	for _, id := range r.IDs() {
		m, err := r.Resolve(id)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", id, err)
		}
		if m.BackendID == "" {
			t.Errorf("Resolve(%q) returned empty backend id", id)
		}
		if m.Dialect != DialectLegacy && m.Dialect != DialectStructured {
			t.Errorf("Resolve(%q) returned unknown dialect %q", id, m.Dialect)
		}
	}
}

func TestResolve_Default(t *testing.T) {
	r := New()

	m, err := r.Resolve("")
	if err != nil {
		t.Fatalf("Resolve with empty id failed: %v", err)
	}
	if m.PublicID != DefaultModel {
		t.Errorf("Expected default model %q, got %q", DefaultModel, m.PublicID)
	}
	if m.Dialect != DialectLegacy {
		t.Errorf("Expected default model to be legacy dialect, got %q", m.Dialect)
	}
}

func TestResolve_DialectClassification(t *testing.T) {
	r := New()

	m, err := r.Resolve("gpt-oss-120b")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.Dialect != DialectStructured {
		t.Errorf("Expected structured dialect for gpt-oss-120b, got %q", m.Dialect)
	}

	m, err = r.Resolve("llama-3.3-70b")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.Dialect != DialectLegacy {
		t.Errorf("Expected legacy dialect for llama-3.3-70b, got %q", m.Dialect)
	}
}

func TestResolve_Unknown(t *testing.T) {
	r := New()

	_, err := r.Resolve("not-a-model")
	if !errors.Is(err, ErrModelNotSupported) {
		t.Errorf("Expected ErrModelNotSupported, got %v", err)
	}
}

func TestResolve_Stable(t *testing.T) {
	r := New()

	first, _ := r.Resolve("deepseek-r1")
	second, _ := r.Resolve("deepseek-r1")
	if first != second {
		t.Errorf("Resolve is not stable: %+v vs %+v", first, second)
	}
}

func TestList_Order(t *testing.T) {
	r := New()

	models := r.List()
	ids := r.IDs()
	if len(models) != len(ids) {
		t.Fatalf("List and IDs disagree on length: %d vs %d", len(models), len(ids))
	}
	for i, m := range models {
		if m.PublicID != ids[i] {
			t.Errorf("List order mismatch at %d: %q vs %q", i, m.PublicID, ids[i])
		}
	}
}
