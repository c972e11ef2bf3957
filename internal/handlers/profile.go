package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

// Avatar uploads are capped at 5 MB.
const maxAvatarSize = 5 << 20

type updateProfileRequest struct {
	DisplayName        *string `json:"display_name,omitempty"`
	FirstName          *string `json:"first_name,omitempty"`
	LastName           *string `json:"last_name,omitempty"`
	IsAnonymous        *bool   `json:"is_anonymous,omitempty"`
	CanRevealIdentity  *bool   `json:"can_reveal_identity,omitempty"`
	RealNameVisibility *bool   `json:"real_name_visibility,omitempty"`
}

// UpdateProfileSettings lets the owner change their identity fields and
// visibility gates. Only fields present in the request change; this is also
// the only place CanRevealIdentity can be set, and only by the owner.
func UpdateProfileSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile, err := profileStore.GetProfile(r.Context(), userID.String())
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Profile not found")
		return
	}

	if req.DisplayName != nil {
		profile.DisplayName = *req.DisplayName
	}
	if req.FirstName != nil {
		profile.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		profile.LastName = *req.LastName
	}
	if req.IsAnonymous != nil {
		profile.IsAnonymous = *req.IsAnonymous
	}
	if req.CanRevealIdentity != nil {
		profile.CanRevealIdentity = *req.CanRevealIdentity
	}
	if req.RealNameVisibility != nil {
		profile.RealNameVisibility = *req.RealNameVisibility
	}

	if err := profileStore.UpdateProfileSettings(r.Context(), profile); err != nil {
		log.Printf("⚠️ Failed to update profile settings: %v", err)
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Profile updated", Data: profile})
}

// UploadAvatar accepts a multipart image upload, stores it in Cloudinary and
// saves the resulting URL on the profile. The avatar is only ever served on
// the real-identity branch of display resolution.
func UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := getCurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if cloudinaryService == nil {
		writeError(w, http.StatusServiceUnavailable, "Avatar uploads are not configured")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		writeError(w, http.StatusBadRequest, "File too large or invalid form")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	if header.Size > maxAvatarSize {
		writeError(w, http.StatusBadRequest, "File too large, maximum is 5MB")
		return
	}

	url, err := cloudinaryService.UploadFile(r.Context(), file, "gatherly/avatars")
	if err != nil {
		log.Printf("⚠️ Avatar upload failed: %v", err)
		http.Error(w, "Failed to upload avatar", http.StatusInternalServerError)
		return
	}

	if err := profileStore.SetAvatarURL(r.Context(), userID.String(), url); err != nil {
		http.Error(w, "Failed to save avatar", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Avatar uploaded",
		Data:    map[string]string{"avatar_url": url},
	})
}
