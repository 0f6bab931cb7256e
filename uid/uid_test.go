package uid

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uidPattern = regexp.MustCompile(`^event-\d+-[0-9a-z]{8}@caldavclient\.local$`)

func TestGenerateFormat(t *testing.T) {
	uid := Generate()
	assert.Regexp(t, uidPattern, uid)
	assert.NoError(t, Validate(uid))
}

func TestGenerateWithDomain(t *testing.T) {
	uid := GenerateWithDomain("corp.example.com")
	assert.True(t, strings.HasSuffix(uid, "@corp.example.com"))
}

func TestGenerateUniqueness(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		uid := Generate()
		_, dup := seen[uid]
		require.False(t, dup, "duplicate uid generated: %s", uid)
		seen[uid] = struct{}{}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		uid     string
		wantErr bool
	}{
		{"valid", "event-1700000000000-ab12cd34@caldavclient.local", false},
		{"empty", "", true},
		{"space", "event 1@x", true},
		{"tab", "event\t1@x", true},
		{"newline", "event\n1@x", true},
		{"comma", "event,1@x", true},
		{"too long", strings.Repeat("a", 256), true},
		{"max length ok", strings.Repeat("a", 255), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.uid)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidUID)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
