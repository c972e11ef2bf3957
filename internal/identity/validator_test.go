package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateHandle(t *testing.T) {
	tests := []struct {
		name      string
		handle    string
		wantValid bool
		wantErrs  int
	}{
		{name: "valid simple", handle: "swift_otter", wantValid: true},
		{name: "valid with digits", handle: "otter42", wantValid: true},
		{name: "valid with hyphen", handle: "swift-otter", wantValid: true},
		{name: "valid minimum length", handle: "abc", wantValid: true},
		{name: "valid maximum length", handle: strings.Repeat("a", 20), wantValid: true},
		{name: "too short", handle: "ab", wantValid: false, wantErrs: 1},
		{name: "too long", handle: strings.Repeat("a", 21), wantValid: false, wantErrs: 1},
		{name: "empty", handle: "", wantValid: false, wantErrs: 1},
		{name: "illegal characters", handle: "swift otter!", wantValid: false, wantErrs: 1},
		{name: "unicode rejected", handle: "ottér42", wantValid: false, wantErrs: 1},
		{name: "reserved word", handle: "admin", wantValid: false, wantErrs: 1},
		{name: "reserved word uppercase", handle: "ADMIN", wantValid: false, wantErrs: 1},
		{name: "reserved word mixed case", handle: "Moderator", wantValid: false, wantErrs: 1},
		{name: "reserved prefix is allowed", handle: "admiral", wantValid: true},
		{name: "short and illegal collects both", handle: "a!", wantValid: false, wantErrs: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateHandle(tt.handle)
			assert.Equal(t, tt.wantValid, res.IsValid)
			if !tt.wantValid {
				assert.Len(t, res.Errors, tt.wantErrs)
			} else {
				assert.Empty(t, res.Errors)
			}
		})
	}
}

func TestValidateHandleTrimsWhitespace(t *testing.T) {
	res := ValidateHandle("  swift_otter  ")
	assert.True(t, res.IsValid)
}

func TestNormalizeHandle(t *testing.T) {
	assert.Equal(t, "swift_otter", NormalizeHandle("  Swift_Otter "))
}
