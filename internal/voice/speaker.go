package voice

import (
	"strconv"
	"strings"
)

// NormalizeSpeakerID coerces a stored speaker id into a usable integer id.
// Agent records keep the value as the raw string clients sent; digits pass
// through, anything unparsable or non-positive becomes DefaultSpeakerID.
// This is the single coercion point for the whole pipeline.
func NormalizeSpeakerID(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DefaultSpeakerID
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return DefaultSpeakerID
	}
	return n
}
