package metadata

import "github.com/tofan79/autoclipper-backend/internal/types"

// DistributeOutputModes assigns render modes to a batch of clips at a
// portrait:landscape ratio of roughly 2:1.
func DistributeOutputModes(totalClips int) []string {
	if totalClips <= 0 {
		return nil
	}
	pattern := []string{types.ClipModePortrait, types.ClipModePortrait, types.ClipModeLandscape}
	modes := make([]string, 0, totalClips)
	for i := 0; i < totalClips; i++ {
		modes = append(modes, pattern[i%len(pattern)])
	}
	return modes
}
