package voice

// FillerStrategy decides whether a filler phrase is spoken before the fragment
// at index. draw is uniform in [0, 1).
type FillerStrategy func(index int, draw float64) (string, bool)

// NoFillers never inserts a filler.
var NoFillers FillerStrategy = func(int, float64) (string, bool) { return "", false }

// RandomFillers inserts one of phrases with the given probability.
func RandomFillers(phrases []string, probability float64) FillerStrategy {
	if len(phrases) == 0 || probability <= 0 {
		return NoFillers
	}
	return func(index int, draw float64) (string, bool) {
		if draw >= probability {
			return "", false
		}
		pick := int(draw / probability * float64(len(phrases)))
		if pick >= len(phrases) {
			pick = len(phrases) - 1
		}
		return phrases[(pick+index)%len(phrases)], true
	}
}
