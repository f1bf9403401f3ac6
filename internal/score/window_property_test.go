package score

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/vaultlens/vaultlens/internal/engine"
)

// genAllowedString generates strings drawn from the recognition allowlist.
func genAllowedString(maxLen int) gopter.Gen {
	alphabet := engine.DefaultAllowlist
	return gen.SliceOf(gen.IntRange(0, len(alphabet)-1)).Map(func(idx []int) string {
		if len(idx) > maxLen {
			idx = idx[:maxLen]
		}
		var sb strings.Builder
		for _, i := range idx {
			sb.WriteByte(alphabet[i])
		}
		return sb.String()
	})
}

// TestNormalize_Idempotent verifies normalizing twice equals normalizing once.
func TestNormalize_Idempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("normalize is idempotent", prop.ForAll(
		func(s string) bool {
			once := Normalize(s, engine.DefaultAllowlist)
			return Normalize(once, engine.DefaultAllowlist) == once
		},
		genAllowedString(40),
	))

	properties.TestingRun(t)
}

// TestNormalize_NoDoubleUnderscore verifies repeated underscores never survive.
func TestNormalize_NoDoubleUnderscore(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("no __ remains after normalize", prop.ForAll(
		func(s string) bool {
			return !strings.Contains(Normalize(s, engine.DefaultAllowlist), "__")
		},
		genAllowedString(40),
	))

	properties.TestingRun(t)
}

// TestBestTextWindow_FixedPoint verifies the selected window is stable
// under reapplication.
func TestBestTextWindow_FixedPoint(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("best window of best window is itself", prop.ForAll(
		func(s string) bool {
			best := BestTextWindow(s, engine.DefaultAllowlist)
			return BestTextWindow(best, engine.DefaultAllowlist) == best
		},
		genAllowedString(40),
	))

	properties.TestingRun(t)
}

// TestBestTextWindow_Substring verifies the result is always a
// substring of the sanitized input.
func TestBestTextWindow_Substring(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("window comes from the sanitized input", prop.ForAll(
		func(s string) bool {
			clean := Sanitize(s, engine.DefaultAllowlist)
			best := BestTextWindow(s, engine.DefaultAllowlist)
			return len(best) <= len(clean) && strings.Contains(clean, best)
		},
		genAllowedString(40),
	))

	properties.TestingRun(t)
}
