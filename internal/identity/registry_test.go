package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryResolveNew(t *testing.T) {
	r := NewRegistry()

	canonical, grouped := r.Resolve("John_Smith")
	assert.Equal(t, "John_Smith", canonical)
	assert.False(t, grouped)
	assert.Contains(t, r.Known(), "John_Smith")
}

func TestRegistryResolveExact(t *testing.T) {
	r := NewRegistry()
	r.Seed([]string{"John_Smith"})

	canonical, grouped := r.Resolve("John_Smith")
	assert.Equal(t, "John_Smith", canonical)
	assert.True(t, grouped)
}

func TestRegistryResolveSharedWords(t *testing.T) {
	r := NewRegistry()
	r.Seed([]string{"John_Michael_Smith"})

	// Two shared name words group under the existing veteran.
	canonical, grouped := r.Resolve("John_Smith")
	assert.Equal(t, "John_Michael_Smith", canonical)
	assert.True(t, grouped)

	// One shared word is not enough.
	canonical, grouped = r.Resolve("John_Doe")
	assert.Equal(t, "John_Doe", canonical)
	assert.False(t, grouped)
}

func TestRegistryFirstSeenWins(t *testing.T) {
	r := NewRegistry()

	first, _ := r.Resolve("Jane_Marie_Doe")
	second, grouped := r.Resolve("Jane_Doe")

	assert.Equal(t, first, second)
	assert.True(t, grouped)

	// Resolving again stays stable.
	third, grouped := r.Resolve("Jane_Doe")
	assert.Equal(t, first, third)
	assert.True(t, grouped)
}

func TestRegistryUnknownNeverGroups(t *testing.T) {
	r := NewRegistry()
	r.Seed([]string{UnknownVeteran})

	canonical, grouped := r.Resolve("")
	assert.Equal(t, UnknownVeteran, canonical)
	assert.False(t, grouped)

	canonical, grouped = r.Resolve(UnknownVeteran)
	assert.Equal(t, UnknownVeteran, canonical)
	assert.False(t, grouped)
}

func TestRegistryCaseInsensitiveMatch(t *testing.T) {
	r := NewRegistry()
	r.Seed([]string{"John_Smith"})

	canonical, grouped := r.Resolve("JOHN_SMITH")
	assert.Equal(t, "John_Smith", canonical)
	assert.True(t, grouped)
}
