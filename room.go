/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"sync"
)

// targetWord is the penalty word: each failed replay earns its next letter,
// and spelling the whole word loses the game.
const targetWord = "MAGIC"

type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseRecording Phase = "recording"
	PhaseReplaying Phase = "replaying"
	PhaseEnded     Phase = "ended"
)

var (
	errRoomFull     = errors.New("Room is full")
	errRoomNotFound = errors.New("Room not found")
)

// Player is one seat in a room. Slot 0 is the creator, slot 1 the joiner.
type Player struct {
	client *Client
	name   string
}

// Room holds one game's authoritative state. All mutable fields are guarded
// by mu; notification sends happen while locked and never block.
type Room struct {
	id string

	mu          sync.Mutex
	players     []*Player
	currentTurn int
	melody      []NoteEvent
	letters     [2]string
	phase       Phase
}

func newRoom(id string) *Room {
	return &Room{
		id:    id,
		phase: PhaseWaiting,
	}
}

func nextLetter(current string) string {
	if len(current) >= len(targetWord) {
		return ""
	}
	return string(targetWord[len(current)])
}

// broadcastLocked assumes r.mu is already held.
func (r *Room) broadcastLocked(msg any) {
	for _, p := range r.players {
		p.client.trySend(msg)
	}
}

// seatCreator fills slot 0. Only called once, straight after creation.
func (r *Room) seatCreator(c *Client, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.players = append(r.players, &Player{client: c, name: name})
}

// join fills slot 1 and starts the game: slot 0 records first.
func (r *Room) join(c *Client, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= 2 {
		return errRoomFull
	}

	r.players = append(r.players, &Player{client: c, name: name})

	c.trySend(roomJoinedMessage{
		Type:         "room-joined",
		RoomID:       r.id,
		PlayerIndex:  1,
		OpponentName: r.players[0].name,
	})

	r.players[0].client.trySend(opponentJoinedMessage{
		Type:         "opponent-joined",
		OpponentName: name,
	})

	r.currentTurn = 0
	r.phase = PhaseRecording

	r.broadcastLocked(gameStartMessage{
		Type:        "game-start",
		CurrentTurn: 0,
		Letters:     r.letters,
	})

	return nil
}

// submitMelody stores the reference melody for this turn. Only the current
// recorder may submit, and only while recording; anything else is a no-op.
// The opponent is sent the melody for playback; the recorder is not.
func (r *Room) submitMelody(idx int, notes []NoteEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseRecording || r.currentTurn != idx {
		return false
	}

	r.melody = notes
	r.phase = PhaseReplaying

	opponent := 1 - idx
	if opponent < len(r.players) {
		r.players[opponent].client.trySend(melodyReceivedMessage{
			Type:  "melody-received",
			Notes: notes,
		})
	}

	return true
}

// submitAttempt runs the comparator against the stored reference. A failed
// attempt earns the attempter the next letter of the target word; spelling
// the full word ends the game with them as loser. Otherwise the turn flips
// to the attempter and the reference is cleared.
func (r *Room) submitAttempt(idx int, notes []NoteEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseReplaying || r.currentTurn == idx || idx < 0 || idx > 1 {
		return false
	}

	success := compareMelodies(r.melody, notes)

	if !success {
		r.letters[idx] += nextLetter(r.letters[idx])
	}

	if len(r.letters[idx]) >= len(targetWord) {
		r.phase = PhaseEnded
		r.broadcastLocked(gameOverMessage{
			Type:    "game-over",
			Loser:   idx,
			Letters: r.letters,
		})
		return true
	}

	r.currentTurn = idx
	r.melody = nil
	r.phase = PhaseRecording

	r.broadcastLocked(turnResultMessage{
		Type:        "turn-result",
		Success:     success,
		Letters:     r.letters,
		CurrentTurn: r.currentTurn,
	})

	return true
}

// restart resets letters and turn for a rematch. Valid from any phase.
func (r *Room) restart() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.letters = [2]string{}
	r.currentTurn = 0
	r.melody = nil
	r.phase = PhaseRecording

	r.broadcastLocked(gameStartMessage{
		Type:        "game-start",
		CurrentTurn: 0,
		Letters:     r.letters,
	})
}

// forfeit ends the game immediately with the forfeiting player as loser.
func (r *Room) forfeit(idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.broadcastLocked(gameOverMessage{
		Type:    "game-over",
		Loser:   idx,
		Letters: r.letters,
	})
	r.phase = PhaseEnded
}

// dropPlayer notifies everyone except the departing connection. The caller
// removes the room from the registry afterwards; rooms are never reused.
func (r *Room) dropPlayer(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		if p.client != c {
			p.client.trySend(opponentDisconnectedMessage{
				Type: "opponent-disconnected",
			})
		}
	}
}
