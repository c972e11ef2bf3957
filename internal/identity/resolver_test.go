package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/gatherly-app/gatherly-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProfileStore serves profiles from a map and can be forced to fail.
type fakeProfileStore struct {
	profiles map[string]*models.Profile
	err      error
}

func (f *fakeProfileStore) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[userID], nil
}

func (f *fakeProfileStore) GetProfiles(_ context.Context, userIDs []string) (map[string]*models.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]*models.Profile)
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func anonymousProfile() *models.Profile {
	return &models.Profile{
		UserID:               "u1",
		Username:             "jane_doe",
		DisplayName:          "Jane Doe",
		AnonymousHandle:      "swift_otter42",
		AnonymousDisplayName: "Swift Otter 42",
		IsAnonymous:          true,
		CanRevealIdentity:    false,
		RealNameVisibility:   false,
		AvatarURL:            "https://cdn.example.com/jane.png",
	}
}

func revealedProfile() *models.Profile {
	p := anonymousProfile()
	p.IsAnonymous = false
	p.CanRevealIdentity = true
	p.RealNameVisibility = true
	return p
}

func TestResolveAnonymousForOtherViewers(t *testing.T) {
	r := NewResolver(&fakeProfileStore{})

	info := r.Resolve(anonymousProfile(), "viewer-99", false)

	assert.Equal(t, "Swift Otter 42", info.DisplayName)
	assert.True(t, info.IsAnonymous)
	assert.False(t, info.CanRevealIdentity)
	assert.Empty(t, info.AvatarURL, "anonymous branch must withhold the avatar")
	assert.Equal(t, "S", info.FallbackInitial)
}

func TestResolveOwnerSeesRealIdentity(t *testing.T) {
	r := NewResolver(&fakeProfileStore{})

	info := r.Resolve(anonymousProfile(), "u1", false)

	assert.Equal(t, "Jane Doe", info.DisplayName)
	assert.False(t, info.IsAnonymous)
	assert.Equal(t, "https://cdn.example.com/jane.png", info.AvatarURL)
	assert.Equal(t, "J", info.FallbackInitial)
}

func TestResolveRevealedProfileShowsRealIdentity(t *testing.T) {
	r := NewResolver(&fakeProfileStore{})

	info := r.Resolve(revealedProfile(), "viewer-99", false)

	assert.Equal(t, "Jane Doe", info.DisplayName)
	assert.False(t, info.IsAnonymous)
	assert.True(t, info.CanRevealIdentity)
	assert.Equal(t, "https://cdn.example.com/jane.png", info.AvatarURL)
}

func TestResolveForceAnonymousOverridesEverything(t *testing.T) {
	r := NewResolver(&fakeProfileStore{})

	// Even the owner of a fully revealed profile goes anonymous when forced.
	info := r.Resolve(revealedProfile(), "u1", true)

	assert.Equal(t, "Swift Otter 42", info.DisplayName)
	assert.True(t, info.IsAnonymous)
	assert.False(t, info.CanRevealIdentity, "forced anonymity must not leak that a reveal is possible")
	assert.Empty(t, info.AvatarURL)
}

func TestResolveDefaultBranchIsAnonymous(t *testing.T) {
	r := NewResolver(&fakeProfileStore{})

	// Not anonymous, but reveal gates are closed: still anonymous for others.
	p := anonymousProfile()
	p.IsAnonymous = false

	info := r.Resolve(p, "viewer-99", false)
	assert.True(t, info.IsAnonymous)
	assert.Equal(t, "Swift Otter 42", info.DisplayName)
}

func TestResolveVisibilityWithoutRevealStaysAnonymous(t *testing.T) {
	r := NewResolver(&fakeProfileStore{})

	p := anonymousProfile()
	p.IsAnonymous = false
	p.RealNameVisibility = true
	p.CanRevealIdentity = false

	info := r.Resolve(p, "viewer-99", false)
	assert.True(t, info.IsAnonymous)
}

func TestResolveIsIdempotent(t *testing.T) {
	r := NewResolver(&fakeProfileStore{})
	p := revealedProfile()

	first := r.Resolve(p, "viewer-99", false)
	second := r.Resolve(p, "viewer-99", false)
	assert.Equal(t, first, second)
}

func TestResolveNameFallbackChain(t *testing.T) {
	r := NewResolver(&fakeProfileStore{})

	p := revealedProfile()
	p.DisplayName = ""
	info := r.Resolve(p, "viewer-99", false)
	assert.Equal(t, "jane_doe", info.DisplayName, "first+last are empty, so username is next")

	p.FirstName = "Jane"
	p.LastName = "Doe"
	info = r.Resolve(p, "viewer-99", false)
	assert.Equal(t, "Jane Doe", info.DisplayName)

	p = revealedProfile()
	p.DisplayName = ""
	p.Username = ""
	p.AnonymousDisplayName = ""
	p.AnonymousHandle = ""
	info = r.Resolve(p, "viewer-99", false)
	assert.Equal(t, AnonymousFallback, info.DisplayName)
	assert.Equal(t, "A", info.FallbackInitial)
}

func TestResolveUserDegradesOnLookupFailure(t *testing.T) {
	r := NewResolver(&fakeProfileStore{err: errors.New("connection reset")})

	info := r.ResolveUser(context.Background(), "u1", "u1", false)

	assert.Equal(t, AnonymousFallback, info.DisplayName)
	assert.True(t, info.IsAnonymous)
	assert.Equal(t, "A", info.FallbackInitial)
}

func TestResolveUserMissingProfile(t *testing.T) {
	r := NewResolver(&fakeProfileStore{profiles: map[string]*models.Profile{}})

	info := r.ResolveUser(context.Background(), "ghost", "", false)
	assert.Equal(t, AnonymousFallback, info.DisplayName)
	assert.Equal(t, "ghost", info.UserID)
}

func TestResolveUsersReturnsEntryForEveryID(t *testing.T) {
	store := &fakeProfileStore{profiles: map[string]*models.Profile{
		"u1": anonymousProfile(),
	}}
	r := NewResolver(store)

	infos := r.ResolveUsers(context.Background(), []string{"u1", "missing", "broken"}, "", false)

	require.Len(t, infos, 3)
	assert.Equal(t, "Swift Otter 42", infos["u1"].DisplayName)
	assert.Equal(t, AnonymousFallback, infos["missing"].DisplayName)
	assert.Equal(t, AnonymousFallback, infos["broken"].DisplayName)
}

func TestResolveUsersBatchLookupFailure(t *testing.T) {
	r := NewResolver(&fakeProfileStore{err: errors.New("timeout")})

	infos := r.ResolveUsers(context.Background(), []string{"a", "b", "c"}, "a", false)

	require.Len(t, infos, 3)
	for id, info := range infos {
		assert.Equal(t, id, info.UserID)
		assert.Equal(t, AnonymousFallback, info.DisplayName)
		assert.True(t, info.IsAnonymous)
	}
}
