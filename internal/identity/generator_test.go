package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHandleStore answers uniqueness checks from an in-memory set.
type fakeHandleStore struct {
	taken map[string]bool
	err   error
	calls int
}

func (f *fakeHandleStore) IsHandleTaken(_ context.Context, handle string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.taken[handle], nil
}

// allTakenStore reports every candidate as taken.
type allTakenStore struct{}

func (allTakenStore) IsHandleTaken(context.Context, string) (bool, error) {
	return true, nil
}

func TestGenerateProducesValidUniqueHandle(t *testing.T) {
	g := NewSeededGenerator(&fakeHandleStore{taken: map[string]bool{}}, 1)

	s, err := g.Generate(context.Background(), GenerateOptions{IncludeNumbers: true})
	require.NoError(t, err)

	assert.True(t, s.IsGenerated)
	assert.True(t, s.IsUnique)
	assert.NotEmpty(t, s.DisplayName)
	assert.True(t, ValidateHandle(s.Username).IsValid, "generated handle %q must pass validation", s.Username)
}

func TestGenerateRespectsMaxLength(t *testing.T) {
	g := NewSeededGenerator(&fakeHandleStore{taken: map[string]bool{}}, 7)

	for i := 0; i < 50; i++ {
		s, err := g.Generate(context.Background(), GenerateOptions{IncludeNumbers: true, MaxLength: 10})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(s.Username), 10)
	}
}

func TestGenerateRandomFormat(t *testing.T) {
	g := NewSeededGenerator(&fakeHandleStore{taken: map[string]bool{}}, 3)

	s, err := g.Generate(context.Background(), GenerateOptions{Format: FormatRandom})
	require.NoError(t, err)
	assert.True(t, ValidateHandle(s.Username).IsValid)
}

func TestGenerateSpecialCharsSeparator(t *testing.T) {
	g := NewSeededGenerator(&fakeHandleStore{taken: map[string]bool{}}, 11)

	s, err := g.Generate(context.Background(), GenerateOptions{IncludeSpecialChars: true})
	require.NoError(t, err)
	assert.Contains(t, s.Username, "_")
}

func TestGenerateRetriesPastTakenHandles(t *testing.T) {
	// Discover what the first candidate would be, then mark it taken and
	// check the generator moves on to a different handle.
	probe := NewSeededGenerator(&fakeHandleStore{taken: map[string]bool{}}, 42)
	first, err := probe.Generate(context.Background(), GenerateOptions{})
	require.NoError(t, err)

	store := &fakeHandleStore{taken: map[string]bool{first.Username: true}}
	g := NewSeededGenerator(store, 42)
	s, err := g.Generate(context.Background(), GenerateOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, first.Username, s.Username)
	assert.GreaterOrEqual(t, store.calls, 2)
}

func TestGenerateExhaustsAfterBoundedAttempts(t *testing.T) {
	g := NewSeededGenerator(allTakenStore{}, 5)

	_, err := g.Generate(context.Background(), GenerateOptions{})
	assert.ErrorIs(t, err, ErrGenerationExhausted)
}

func TestGeneratePropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("connection refused")
	g := NewSeededGenerator(&fakeHandleStore{err: storeErr}, 5)

	_, err := g.Generate(context.Background(), GenerateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrGenerationExhausted)
}

func TestSuggestionsAreMutuallyUnique(t *testing.T) {
	g := NewSeededGenerator(&fakeHandleStore{taken: map[string]bool{}}, 9)

	suggestions, err := g.Suggestions(context.Background(), 5, GenerateOptions{IncludeNumbers: true})
	require.NoError(t, err)
	require.Len(t, suggestions, 5)

	seen := map[string]bool{}
	for _, s := range suggestions {
		assert.False(t, seen[s.Username], "duplicate suggestion %q", s.Username)
		seen[s.Username] = true
		assert.True(t, ValidateHandle(s.Username).IsValid)
	}
}

func TestSuggestionsCountFloor(t *testing.T) {
	g := NewSeededGenerator(&fakeHandleStore{taken: map[string]bool{}}, 13)

	suggestions, err := g.Suggestions(context.Background(), 0, GenerateOptions{})
	require.NoError(t, err)
	assert.Len(t, suggestions, 1)
}

func TestGeneratedHandlesNeverReserved(t *testing.T) {
	g := NewSeededGenerator(&fakeHandleStore{taken: map[string]bool{}}, 21)

	for i := 0; i < 100; i++ {
		s, err := g.Generate(context.Background(), GenerateOptions{IncludeNumbers: i%2 == 0})
		require.NoError(t, err)
		_, reserved := reservedHandles[strings.ToLower(s.Username)]
		assert.False(t, reserved, "generated a reserved handle %q", s.Username)
	}
}
