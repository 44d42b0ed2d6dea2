package warpcore

// MaxLevel is the highest warp level the controller accepts.
const MaxLevel = 9

// LevelForStreams maps an active stream count to a warp level.
//
// Counts below [MaxLevel] map to themselves, so zero streams is level 0.
// Anything at or above MaxLevel is clamped to MaxLevel. Negative counts are
// clamped to 0; the result is always in [0, MaxLevel].
func LevelForStreams(streams int) int {
	switch {
	case streams < 0:
		return 0
	case streams < MaxLevel:
		return streams
	default:
		return MaxLevel
	}
}
