// Package roi proposes candidate text-line rectangles within a view.
package roi

import (
	"image"

	"github.com/vaultlens/vaultlens/internal/utils"
)

// BuildTextMask combines a global Otsu mask with a local adaptive mask.
// The intersection suppresses broad uniform background regions while
// keeping textured text, and a small opening clears single-pixel noise.
func BuildTextMask(gray *image.Gray) *image.Gray {
	global := utils.OtsuBinarize(gray)
	local := utils.AdaptiveThreshold(gray, 31, 2)
	mask := utils.AndMask(global, local)
	return utils.MorphOpen(mask, 2, 2, 1)
}
