package identity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Handle formats supported by the generator.
const (
	FormatAdjectiveNoun = "adjective-noun"
	FormatRandom        = "random"
)

// maxGenerateAttempts bounds the retry loop of a single generation so a run
// of collisions can never block the caller indefinitely.
const maxGenerateAttempts = 10

// ErrGenerationExhausted is returned when no valid, unique candidate was
// found within the attempt budget. Callers should surface a retry affordance.
var ErrGenerationExhausted = errors.New("no unique handle found within attempt budget")

// HandleStore answers "does any profile already use this handle".
type HandleStore interface {
	IsHandleTaken(ctx context.Context, handle string) (bool, error)
}

// GenerateOptions controls handle composition.
type GenerateOptions struct {
	Format              string `json:"format,omitempty"`
	IncludeNumbers      bool   `json:"include_numbers,omitempty"`
	IncludeSpecialChars bool   `json:"include_special_chars,omitempty"`
	MaxLength           int    `json:"max_length,omitempty"`
}

// Suggestion is an ephemeral handle candidate; nothing is persisted until
// the user applies it.
type Suggestion struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	IsGenerated bool   `json:"is_generated"`
	IsUnique    bool   `json:"is_unique"`
}

// Generator produces anonymous handle suggestions that pass validation and
// are unique against persisted profiles.
type Generator struct {
	store HandleStore
	rng   *rand.Rand
}

// NewGenerator returns a generator backed by the given uniqueness store.
func NewGenerator(store HandleStore) *Generator {
	return NewSeededGenerator(store, time.Now().UnixNano())
}

// NewSeededGenerator is NewGenerator with a fixed seed, for deterministic tests.
func NewSeededGenerator(store HandleStore, seed int64) *Generator {
	return &Generator{
		store: store,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Generate produces a single valid, unique handle suggestion.
func (g *Generator) Generate(ctx context.Context, opts GenerateOptions) (Suggestion, error) {
	return g.generate(ctx, opts, nil)
}

// Suggestions produces count suggestions that are also unique among each
// other within this call.
func (g *Generator) Suggestions(ctx context.Context, count int, opts GenerateOptions) ([]Suggestion, error) {
	if count <= 0 {
		count = 1
	}

	seen := make(map[string]struct{}, count)
	out := make([]Suggestion, 0, count)
	for i := 0; i < count; i++ {
		s, err := g.generate(ctx, opts, seen)
		if err != nil {
			return nil, err
		}
		seen[s.Username] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// generate composes candidates until one passes validation and uniqueness
// checks, or the attempt budget is spent. seen tracks handles already
// returned in the current batch.
func (g *Generator) generate(ctx context.Context, opts GenerateOptions, seen map[string]struct{}) (Suggestion, error) {
	maxLen := opts.MaxLength
	if maxLen <= 0 || maxLen > MaxHandleLength {
		maxLen = MaxHandleLength
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		username, display := g.compose(opts, maxLen)

		if res := ValidateHandle(username); !res.IsValid {
			continue
		}
		if _, dup := seen[username]; dup {
			continue
		}

		taken, err := g.store.IsHandleTaken(ctx, username)
		if err != nil {
			return Suggestion{}, fmt.Errorf("handle uniqueness check failed: %w", err)
		}
		if taken {
			continue
		}

		return Suggestion{
			Username:    username,
			DisplayName: display,
			IsGenerated: true,
			IsUnique:    true,
		}, nil
	}

	return Suggestion{}, ErrGenerationExhausted
}

// compose builds one candidate plus its human-readable display form,
// truncating the base before any numeric suffix so the suffix survives.
func (g *Generator) compose(opts GenerateOptions, maxLen int) (username string, display string) {
	var base string
	var displayWords []string

	switch opts.Format {
	case FormatRandom:
		base = g.randomToken(maxLen)
		displayWords = []string{base}
	default: // adjective-noun
		adj := handleAdjectives[g.rng.Intn(len(handleAdjectives))]
		noun := handleNouns[g.rng.Intn(len(handleNouns))]
		sep := ""
		if opts.IncludeSpecialChars {
			sep = "_"
		}
		base = adj + sep + noun
		displayWords = []string{titleWord(adj), titleWord(noun)}
	}

	suffix := ""
	if opts.IncludeNumbers {
		digits := 2 + g.rng.Intn(3) // 2-4 digits
		max := 1
		for i := 0; i < digits; i++ {
			max *= 10
		}
		suffix = fmt.Sprintf("%0*d", digits, g.rng.Intn(max))
	}

	if len(base)+len(suffix) > maxLen {
		cut := maxLen - len(suffix)
		if cut < 0 {
			cut = 0
		}
		base = base[:cut]
	}

	username = base + suffix
	display = strings.Join(displayWords, " ")
	if suffix != "" {
		display += " " + suffix
	}
	return username, display
}

// randomToken returns a lowercase alphanumeric token of 8-12 characters,
// clamped to maxLen.
func (g *Generator) randomToken(maxLen int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	n := 8 + g.rng.Intn(5)
	if n > maxLen {
		n = maxLen
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[g.rng.Intn(len(alphabet))]
	}
	return string(b)
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
