package personas_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/agora-ai/agora/internal/app/personas"
	"github.com/agora-ai/agora/internal/domain"
)

func TestGetBuiltinPersona(t *testing.T) {
	r := personas.NewRegistry()

	p, err := r.Get("socrates")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.Name != "Socrates" {
		t.Fatalf("expected Socrates, got %q", p.Name)
	}

	// ids resolve case-insensitively
	p2, err := r.Get("  SOCRATES ")
	if err != nil {
		t.Fatalf("Get with mixed case failed: %v", err)
	}
	if p2.ID != p.ID {
		t.Fatalf("expected same persona, got %q and %q", p.ID, p2.ID)
	}
}

func TestGetUnknownPersona(t *testing.T) {
	r := personas.NewRegistry()

	_, err := r.Get("nietzsche")
	if err == nil {
		t.Fatal("expected error for unknown persona")
	}
	if !errors.Is(err, domain.ErrPersonaNotFound) {
		t.Fatalf("expected ErrPersonaNotFound, got %v", err)
	}
}

func TestLoadFileOverridesAndAdds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	content := `personas:
  - id: Hypatia
    name: Hypatia
    perspective: Mathematics and astronomy as paths to understanding.
    style: Patient and precise.
  - id: socrates
    name: Socrates of Athens
    perspective: Custom perspective.
    style: Custom style.
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r := personas.NewRegistry()
	if err := r.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	added, err := r.Get("hypatia")
	if err != nil {
		t.Fatalf("expected hypatia to be registered: %v", err)
	}
	if added.Name != "Hypatia" {
		t.Fatalf("unexpected name %q", added.Name)
	}

	overridden, err := r.Get("socrates")
	if err != nil {
		t.Fatal(err)
	}
	if overridden.Name != "Socrates of Athens" {
		t.Fatalf("expected override to win, got %q", overridden.Name)
	}
}
