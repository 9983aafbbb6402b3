/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sort"
)

// NoteEvent is one recorded musical event: a single note, a chord, or a rest.
// Older clients send a singular "note" field; newer ones send "notes" plus a
// "type" tag, so classification goes by which fields are present.
type NoteEvent struct {
	Type      string   `json:"type,omitempty"`
	Note      string   `json:"note,omitempty"`
	Notes     []string `json:"notes,omitempty"`
	Timestamp int64    `json:"timestamp"`
	Duration  int64    `json:"duration,omitempty"`
}

const (
	eventChord = "chord"
	eventRest  = "rest"
)

// Pitched reports whether the event carries at least one pitch
// (a note or a chord, as opposed to a rest).
func (e NoteEvent) Pitched() bool {
	return e.Type == eventChord || len(e.Notes) > 0 || e.Note != ""
}

// Rest reports whether the event is a timed silence.
func (e NoteEvent) Rest() bool {
	return e.Type == eventRest
}

// Pitches returns the event's pitch set in sorted order: a chord's notes,
// or a singleton for a plain note. Rests return nil.
func (e NoteEvent) Pitches() []string {
	if len(e.Notes) > 0 {
		pitches := append([]string(nil), e.Notes...)
		sort.Strings(pitches)
		return pitches
	}
	if e.Note != "" {
		return []string{e.Note}
	}
	return nil
}
