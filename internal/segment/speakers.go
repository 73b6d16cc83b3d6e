package segment

import (
	"fmt"
	"slices"
)

// SpeakerPrefix is the prefix of generated speaker ids (SPEAKER_00, SPEAKER_01, ...).
const SpeakerPrefix = "SPEAKER_"

// SpeakerIDs returns the sorted, distinct speaker ids referenced by segs.
func SpeakerIDs(segs []Segment) []string {
	ids := make([]string, 0, len(segs))
	for _, s := range segs {
		ids = append(ids, s.SpeakerID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Speakers returns sort(unique(speakers from segs ∪ manual)).
func Speakers(segs []Segment, manual []string) []string {
	ids := SpeakerIDs(segs)
	ids = append(ids, manual...)
	slices.Sort(ids)
	return slices.Compact(ids)
}

// HasSegments reports whether any segment references speakerID.
func HasSegments(segs []Segment, speakerID string) bool {
	return slices.ContainsFunc(segs, func(s Segment) bool { return s.SpeakerID == speakerID })
}

// PruneManual drops manual speakers that are referenced by a segment,
// preserving the order of the rest.
func PruneManual(segs []Segment, manual []string) []string {
	out := make([]string, 0, len(manual))
	for _, id := range manual {
		if !HasSegments(segs, id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// NextSpeakerID returns the lowest-numbered SPEAKER_NN id not present in existing.
func NextSpeakerID(existing []string) string {
	taken := make(map[string]bool, len(existing))
	for _, id := range existing {
		taken[id] = true
	}
	for n := 0; ; n++ {
		id := fmt.Sprintf("%s%02d", SpeakerPrefix, n)
		if !taken[id] {
			return id
		}
	}
}
