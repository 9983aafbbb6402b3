/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// Melody comparison is deliberately forgiving: live human input is noisy, so
// one discrepancy across any axis (pitch, relative timing, duration bucket)
// is tolerated before an attempt is judged a failure.

const (
	// timingTolerance is the allowed drift, in ms, between an event's offset
	// from the start of the reference and its offset in the attempt.
	timingTolerance = 300

	// mismatchBudget is the number of discrepancies tolerated per attempt.
	mismatchBudget = 1

	// defaultDuration substitutes for events from senders that omit duration.
	defaultDuration = 300
)

// durationThresholds split durations into sixteenth, eighth, quarter, half,
// and whole buckets. Attempts may land in the same or an adjacent bucket.
var durationThresholds = [...]int64{187, 375, 750, 1500}

func quantizeDuration(ms int64) int {
	if ms <= 0 {
		ms = defaultDuration
	}
	for bucket, threshold := range durationThresholds {
		if ms <= threshold {
			return bucket
		}
	}
	return len(durationThresholds)
}

func pitchesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func pitchedEvents(melody []NoteEvent) []NoteEvent {
	events := make([]NoteEvent, 0, len(melody))
	for _, e := range melody {
		if e.Pitched() {
			events = append(events, e)
		}
	}
	return events
}

func countRests(melody []NoteEvent) int {
	rests := 0
	for _, e := range melody {
		if e.Rest() {
			rests++
		}
	}
	return rests
}

// compareMelodies reports whether attempt is a close-enough replay of
// reference. A nil reference or attempt always fails.
func compareMelodies(reference, attempt []NoteEvent) bool {
	if reference == nil || attempt == nil {
		return false
	}

	refPitched := pitchedEvents(reference)
	attPitched := pitchedEvents(attempt)

	// Allow one extra or missing pitched event, no more.
	diff := len(refPitched) - len(attPitched)
	if diff > 1 || diff < -1 {
		return false
	}

	minLen := len(refPitched)
	if len(attPitched) < minLen {
		minLen = len(attPitched)
	}

	mismatches := 0

	for i := 0; i < minLen; i++ {
		ref := refPitched[i]
		att := attPitched[i]

		// Pitch sets must match exactly, order-independent.
		if !pitchesEqual(ref.Pitches(), att.Pitches()) {
			mismatches++
			if mismatches > mismatchBudget {
				return false
			}
			continue
		}

		// Timing is compared relative to each sequence's first pitched event.
		refTime := ref.Timestamp - refPitched[0].Timestamp
		attTime := att.Timestamp - attPitched[0].Timestamp
		if delta := refTime - attTime; delta > timingTolerance || delta < -timingTolerance {
			mismatches++
			if mismatches > mismatchBudget {
				return false
			}
		}

		refBucket := quantizeDuration(ref.Duration)
		attBucket := quantizeDuration(att.Duration)
		if gap := refBucket - attBucket; gap > 1 || gap < -1 {
			mismatches++
			if mismatches > mismatchBudget {
				return false
			}
		}
	}

	// Rests are checked leniently: only their complete absence counts, once.
	if countRests(reference) > 0 && countRests(attempt) == 0 {
		mismatches++
	}

	return mismatches <= mismatchBudget
}
