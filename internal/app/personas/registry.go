package personas

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agora-ai/agora/internal/domain"
)

// Registry resolves persona ids to their parameters. Lookup failure is
// surfaced as domain.ErrPersonaNotFound before any workflow transition runs.
type Registry struct {
	personas map[domain.PersonaID]domain.Persona
}

// NewRegistry builds a registry with the built-in persona set.
func NewRegistry() *Registry {
	r := &Registry{personas: make(map[domain.PersonaID]domain.Persona, len(builtin))}
	for _, p := range builtin {
		r.personas[p.ID] = p
	}
	return r
}

type personasFile struct {
	Personas []domain.Persona `yaml:"personas"`
}

// LoadFile merges personas from a YAML file into the registry. File entries
// override built-in entries with the same id.
func (r *Registry) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read personas file: %w", err)
	}

	var file personasFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse personas file %s: %w", path, err)
	}

	for _, p := range file.Personas {
		id := domain.PersonaID(strings.ToLower(strings.TrimSpace(string(p.ID))))
		if id == "" {
			return fmt.Errorf("personas file %s: entry with empty id", path)
		}
		if p.Name == "" {
			return fmt.Errorf("personas file %s: persona %q has no name", path, id)
		}
		p.ID = id
		r.personas[id] = p
	}
	return nil
}

// Get resolves a persona id. Ids are matched case-insensitively.
func (r *Registry) Get(id string) (domain.Persona, error) {
	key := domain.PersonaID(strings.ToLower(strings.TrimSpace(id)))
	p, ok := r.personas[key]
	if !ok {
		return domain.Persona{}, fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, id)
	}
	return p, nil
}

// IDs returns all registered persona ids, sorted.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.personas))
	for id := range r.personas {
		out = append(out, string(id))
	}
	sort.Strings(out)
	return out
}
