package identity

import (
	"strings"
	"sync"
)

// Registry tracks known veteran names so later documents group under the
// folder created by earlier ones. First-seen names win: a match returns the
// existing canonical name, never renames a folder.
type Registry struct {
	mu    sync.Mutex
	known map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{known: make(map[string]struct{})}
}

// Seed adds existing veteran names, typically loaded from the store and from
// on-disk veteran folders at startup.
func (r *Registry) Seed(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if name != "" {
			r.known[name] = struct{}{}
		}
	}
}

// Resolve returns the canonical name for a sanitized candidate. When an
// existing veteran matches (exactly, or sharing at least two name words) the
// existing name is returned with grouped=true; otherwise the candidate is
// registered as a new veteran.
func (r *Registry) Resolve(name string) (canonical string, grouped bool) {
	if name == "" {
		name = UnknownVeteran
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if name != UnknownVeteran {
		if existing, ok := r.match(name); ok {
			return existing, true
		}
	}

	r.known[name] = struct{}{}
	return name, false
}

// Known returns a snapshot of registered names.
func (r *Registry) Known() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.known))
	for name := range r.known {
		names = append(names, name)
	}
	return names
}

func (r *Registry) match(name string) (string, bool) {
	currentClean := strings.ReplaceAll(strings.ToLower(name), "_", " ")
	currentWords := wordSet(currentClean)

	for existing := range r.known {
		if existing == UnknownVeteran {
			continue
		}
		existingClean := strings.ReplaceAll(strings.ToLower(existing), "_", " ")
		if currentClean == existingClean {
			return existing, true
		}
		if countShared(currentWords, wordSet(existingClean)) >= 2 {
			return existing, true
		}
	}
	return "", false
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

func countShared(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
