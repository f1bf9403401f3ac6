package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vaultlens/vaultlens/internal/engine"
)

func TestSanitize(t *testing.T) {
	allow := engine.DefaultAllowlist

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"clean passes through", "T3*1-B?+AcJ3@_9L", "T3*1-B?+AcJ3@_9L"},
		{"spaces and colons stripped", "pass: T3*1 B?+", "passT3*1B?+"},
		{"non-ascii stripped", "aé€b", "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in, allow))
		})
	}
}

func TestNormalize(t *testing.T) {
	allow := engine.DefaultAllowlist

	t.Run("collapses underscore runs", func(t *testing.T) {
		assert.Equal(t, "a_b_c", Normalize("a__b___c", allow))
	})

	t.Run("sanitizes first", func(t *testing.T) {
		assert.Equal(t, "a_b", Normalize("a_ _b", allow))
	})

	t.Run("idempotent on a messy sample", func(t *testing.T) {
		once := Normalize("  T3*1-B?+__AcJ3@__9L  ", allow)
		assert.Equal(t, once, Normalize(once, allow))
	})
}

func TestBestTextWindow(t *testing.T) {
	allow := engine.DefaultAllowlist
	token := "T3*1-B?+AcJ3@_9L"

	t.Run("short text returned whole", func(t *testing.T) {
		assert.Equal(t, "abc", BestTextWindow("abc", allow))
		assert.Equal(t, "", BestTextWindow("", allow))
	})

	t.Run("token-length text kept", func(t *testing.T) {
		assert.Equal(t, token, BestTextWindow(token, allow))
	})

	t.Run("trailing digit noise dropped", func(t *testing.T) {
		got := BestTextWindow("x"+token+"7", allow)
		assert.Equal(t, "x"+token, got)
	})

	t.Run("long accretion trimmed to window", func(t *testing.T) {
		got := BestTextWindow("WiFipass"+token+"0kb", allow)
		assert.LessOrEqual(t, len(got), 18)
		assert.Contains(t, "WiFipass"+token+"0kb", got)
	})
}
