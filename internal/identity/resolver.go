package identity

import (
	"context"
	"strings"
	"unicode"

	"github.com/gatherly-app/gatherly-backend/internal/models"
)

// AnonymousFallback is the terminal display string when a profile has neither
// an anonymous handle nor any real-name field.
const AnonymousFallback = "Anonymous User"

// ProfileStore loads profiles for display resolution.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	GetProfiles(ctx context.Context, userIDs []string) (map[string]*models.Profile, error)
}

// DisplayInfo is what a viewer is allowed to see about a user.
type DisplayInfo struct {
	UserID            string `json:"user_id"`
	DisplayName       string `json:"display_name"`
	IsAnonymous       bool   `json:"is_anonymous"`
	CanRevealIdentity bool   `json:"can_reveal_identity"`
	AvatarURL         string `json:"avatar_url,omitempty"`
	FallbackInitial   string `json:"fallback_initial"`
}

// Resolver decides which name/avatar a viewer may see for a profile.
// A lookup failure always degrades to the anonymous fallback: hiding an
// identity is safe, over-revealing or crashing is not.
type Resolver struct {
	store ProfileStore
}

func NewResolver(store ProfileStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve applies the visibility rules to an already-loaded profile.
// Branch order, first match wins:
//  1. forceAnonymous, or a non-owner viewing an anonymous profile -> anonymous
//  2. owner viewing self, or canRevealIdentity && realNameVisibility -> real identity
//  3. default -> anonymous
func (r *Resolver) Resolve(profile *models.Profile, viewerUserID string, forceAnonymous bool) DisplayInfo {
	if profile == nil {
		return anonymousDefault("")
	}

	isOwner := viewerUserID != "" && viewerUserID == profile.UserID

	canReveal := profile.CanRevealIdentity
	if forceAnonymous {
		// The caller's override must not leak that a reveal is possible.
		canReveal = false
	}

	if forceAnonymous || (!isOwner && profile.IsAnonymous) {
		return anonymousInfo(profile, canReveal)
	}

	if isOwner || (profile.CanRevealIdentity && profile.RealNameVisibility) {
		name := realName(profile)
		return DisplayInfo{
			UserID:            profile.UserID,
			DisplayName:       name,
			IsAnonymous:       false,
			CanRevealIdentity: canReveal,
			AvatarURL:         profile.AvatarURL,
			FallbackInitial:   initial(name),
		}
	}

	return anonymousInfo(profile, canReveal)
}

// ResolveUser loads and resolves a single profile. Lookup errors and missing
// profiles resolve to the anonymous fallback.
func (r *Resolver) ResolveUser(ctx context.Context, userID, viewerUserID string, forceAnonymous bool) DisplayInfo {
	profile, err := r.store.GetProfile(ctx, userID)
	if err != nil || profile == nil {
		return anonymousDefault(userID)
	}
	info := r.Resolve(profile, viewerUserID, forceAnonymous)
	return info
}

// ResolveUsers resolves each id independently and always returns an entry for
// every requested id, even when the underlying lookup fails. Partial-failure
// tolerance here is a hard requirement: a broken profile row must not take a
// member list or chat roster down with it.
func (r *Resolver) ResolveUsers(ctx context.Context, userIDs []string, viewerUserID string, forceAnonymous bool) map[string]DisplayInfo {
	out := make(map[string]DisplayInfo, len(userIDs))

	profiles, err := r.store.GetProfiles(ctx, userIDs)
	if err != nil {
		profiles = nil
	}

	for _, id := range userIDs {
		if p, ok := profiles[id]; ok && p != nil {
			out[id] = r.Resolve(p, viewerUserID, forceAnonymous)
			continue
		}
		out[id] = anonymousDefault(id)
	}
	return out
}

// anonymousInfo builds the anonymous branch: handle-based name, avatar withheld.
func anonymousInfo(profile *models.Profile, canReveal bool) DisplayInfo {
	name := profile.AnonymousDisplayName
	if name == "" {
		name = profile.AnonymousHandle
	}
	if name == "" {
		name = AnonymousFallback
	}
	return DisplayInfo{
		UserID:            profile.UserID,
		DisplayName:       name,
		IsAnonymous:       true,
		CanRevealIdentity: canReveal,
		FallbackInitial:   initial(name),
	}
}

func anonymousDefault(userID string) DisplayInfo {
	return DisplayInfo{
		UserID:          userID,
		DisplayName:     AnonymousFallback,
		IsAnonymous:     true,
		FallbackInitial: "A",
	}
}

// realName picks the best real-identity display string for a profile.
func realName(profile *models.Profile) string {
	if profile.DisplayName != "" {
		return profile.DisplayName
	}
	if full := strings.TrimSpace(profile.FirstName + " " + profile.LastName); full != "" {
		return full
	}
	if profile.Username != "" {
		return profile.Username
	}
	if profile.AnonymousDisplayName != "" {
		return profile.AnonymousDisplayName
	}
	if profile.AnonymousHandle != "" {
		return profile.AnonymousHandle
	}
	return AnonymousFallback
}

func initial(name string) string {
	for _, r := range name {
		return string(unicode.ToUpper(r))
	}
	return "A"
}
