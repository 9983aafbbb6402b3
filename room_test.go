/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient returns a Client with a buffered send channel and no socket;
// trySend never touches the connection.
func testClient() *Client {
	return &Client{send: make(chan any, 8)}
}

// drain empties a client's send buffer and returns everything queued so far.
func drain(c *Client) []any {
	var msgs []any
	for {
		select {
		case msg := <-c.send:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func newStartedRoom(t *testing.T) (*Room, *Client, *Client) {
	t.Helper()

	room := newRoom("deadbeef")
	creator := testClient()
	joiner := testClient()

	room.seatCreator(creator, "Ada")
	require.NoError(t, room.join(joiner, "Linus"))

	drain(creator)
	drain(joiner)

	return room, creator, joiner
}

func TestRoomJoin(t *testing.T) {
	room := newRoom("deadbeef")
	creator := testClient()
	joiner := testClient()

	room.seatCreator(creator, "Ada")
	assert.Equal(t, PhaseWaiting, room.phase)

	require.NoError(t, room.join(joiner, "Linus"))

	assert.Equal(t, PhaseRecording, room.phase)
	assert.Equal(t, 0, room.currentTurn)

	joinerMsgs := drain(joiner)
	require.Len(t, joinerMsgs, 2)
	joined, ok := joinerMsgs[0].(roomJoinedMessage)
	require.True(t, ok)
	assert.Equal(t, "deadbeef", joined.RoomID)
	assert.Equal(t, 1, joined.PlayerIndex)
	assert.Equal(t, "Ada", joined.OpponentName)
	assert.IsType(t, gameStartMessage{}, joinerMsgs[1])

	creatorMsgs := drain(creator)
	require.Len(t, creatorMsgs, 2)
	opponent, ok := creatorMsgs[0].(opponentJoinedMessage)
	require.True(t, ok)
	assert.Equal(t, "Linus", opponent.OpponentName)
	start, ok := creatorMsgs[1].(gameStartMessage)
	require.True(t, ok)
	assert.Equal(t, 0, start.CurrentTurn)
	assert.Equal(t, [2]string{"", ""}, start.Letters)
}

func TestRoomJoinFull(t *testing.T) {
	room, _, _ := newStartedRoom(t)

	third := testClient()
	assert.ErrorIs(t, room.join(third, "Grace"), errRoomFull)
	assert.Empty(t, drain(third))
}

func TestSubmitMelody(t *testing.T) {
	room, creator, joiner := newStartedRoom(t)

	melody := []NoteEvent{note("C4", 0, 300), note("E4", 500, 300)}
	assert.True(t, room.submitMelody(0, melody))

	assert.Equal(t, PhaseReplaying, room.phase)
	assert.Equal(t, melody, room.melody)

	// Opponent gets the melody; the recorder does not.
	joinerMsgs := drain(joiner)
	require.Len(t, joinerMsgs, 1)
	received, ok := joinerMsgs[0].(melodyReceivedMessage)
	require.True(t, ok)
	assert.Equal(t, melody, received.Notes)
	assert.Empty(t, drain(creator))
}

func TestSubmitMelodyAuthorization(t *testing.T) {
	room, creator, joiner := newStartedRoom(t)

	// Wrong player: silent no-op, no state change, no broadcast.
	assert.False(t, room.submitMelody(1, []NoteEvent{note("C4", 0, 300)}))
	assert.Equal(t, PhaseRecording, room.phase)
	assert.Nil(t, room.melody)
	assert.Empty(t, drain(creator))
	assert.Empty(t, drain(joiner))

	// Wrong phase: attempts are not melodies.
	require.True(t, room.submitMelody(0, []NoteEvent{note("C4", 0, 300)}))
	assert.False(t, room.submitMelody(0, []NoteEvent{note("D4", 0, 300)}))
}

func TestSubmitAttemptSuccess(t *testing.T) {
	room, creator, joiner := newStartedRoom(t)

	melody := []NoteEvent{note("C4", 0, 300), note("E4", 500, 300)}
	require.True(t, room.submitMelody(0, melody))
	drain(joiner)

	assert.True(t, room.submitAttempt(1, melody))

	assert.Equal(t, PhaseRecording, room.phase)
	assert.Equal(t, 1, room.currentTurn, "attempter records next")
	assert.Nil(t, room.melody, "reference cleared on resolution")
	assert.Equal(t, [2]string{"", ""}, room.letters)

	for _, c := range []*Client{creator, joiner} {
		msgs := drain(c)
		require.Len(t, msgs, 1)
		result, ok := msgs[0].(turnResultMessage)
		require.True(t, ok)
		assert.True(t, result.Success)
		assert.Equal(t, 1, result.CurrentTurn)
	}
}

func TestSubmitAttemptFailure(t *testing.T) {
	room, creator, joiner := newStartedRoom(t)

	require.True(t, room.submitMelody(0, []NoteEvent{note("C4", 0, 300), note("E4", 500, 300)}))
	drain(joiner)

	// Two wrong pitches blow the mismatch budget.
	assert.True(t, room.submitAttempt(1, []NoteEvent{note("D4", 0, 300), note("F4", 500, 300)}))

	assert.Equal(t, [2]string{"", "M"}, room.letters)
	assert.Equal(t, 1, room.currentTurn)

	msgs := drain(creator)
	require.Len(t, msgs, 1)
	result, ok := msgs[0].(turnResultMessage)
	require.True(t, ok)
	assert.False(t, result.Success)
	assert.Equal(t, [2]string{"", "M"}, result.Letters)
}

func TestSubmitAttemptAuthorization(t *testing.T) {
	room, creator, joiner := newStartedRoom(t)

	// No reference yet: replaying never started.
	assert.False(t, room.submitAttempt(1, []NoteEvent{note("C4", 0, 300)}))

	melody := []NoteEvent{note("C4", 0, 300)}
	require.True(t, room.submitMelody(0, melody))
	drain(joiner)

	// The recorder may not attempt their own melody.
	assert.False(t, room.submitAttempt(0, melody))
	assert.Equal(t, PhaseReplaying, room.phase)
	assert.Empty(t, drain(creator))
	assert.Empty(t, drain(joiner))
}

func TestLettersAccumulateToGameOver(t *testing.T) {
	room, creator, joiner := newStartedRoom(t)

	melody := []NoteEvent{note("C4", 0, 300), note("E4", 500, 300)}
	botched := []NoteEvent{note("D4", 0, 300), note("F4", 500, 300)}

	// Player 1 fails every replay; player 0 replays perfectly, so the turn
	// bounces back and forth while only player 1 collects letters.
	for round := 1; round <= 4; round++ {
		require.True(t, room.submitMelody(0, melody))
		require.True(t, room.submitAttempt(1, botched))
		assert.Equal(t, targetWord[:round], room.letters[1])
		assert.Equal(t, PhaseRecording, room.phase)

		require.True(t, room.submitMelody(1, melody))
		require.True(t, room.submitAttempt(0, melody))
		assert.Empty(t, room.letters[0])
	}

	drain(creator)
	drain(joiner)

	// Fifth failure spells the whole word.
	require.True(t, room.submitMelody(0, melody))
	drain(joiner)
	require.True(t, room.submitAttempt(1, botched))

	assert.Equal(t, PhaseEnded, room.phase)
	assert.Equal(t, targetWord, room.letters[1])

	for _, c := range []*Client{creator, joiner} {
		msgs := drain(c)
		require.Len(t, msgs, 1)
		over, ok := msgs[0].(gameOverMessage)
		require.True(t, ok)
		assert.Equal(t, 1, over.Loser)
		assert.Equal(t, targetWord, over.Letters[1])
	}

	// Ended rooms ignore further submissions.
	assert.False(t, room.submitMelody(1, melody))
	assert.False(t, room.submitAttempt(0, melody))
}

func TestForfeit(t *testing.T) {
	room, creator, joiner := newStartedRoom(t)

	room.forfeit(0)

	assert.Equal(t, PhaseEnded, room.phase)

	for _, c := range []*Client{creator, joiner} {
		msgs := drain(c)
		require.Len(t, msgs, 1)
		over, ok := msgs[0].(gameOverMessage)
		require.True(t, ok)
		assert.Equal(t, 0, over.Loser)
	}
}

func TestRestart(t *testing.T) {
	room, creator, joiner := newStartedRoom(t)

	room.forfeit(1)
	require.Equal(t, PhaseEnded, room.phase)
	drain(creator)
	drain(joiner)

	room.restart()

	assert.Equal(t, PhaseRecording, room.phase)
	assert.Equal(t, 0, room.currentTurn)
	assert.Equal(t, [2]string{"", ""}, room.letters)
	assert.Nil(t, room.melody)

	for _, c := range []*Client{creator, joiner} {
		msgs := drain(c)
		require.Len(t, msgs, 1)
		assert.IsType(t, gameStartMessage{}, msgs[0])
	}
}

func TestDropPlayerNotifiesRemainderOnly(t *testing.T) {
	room, creator, joiner := newStartedRoom(t)

	room.dropPlayer(joiner)

	msgs := drain(creator)
	require.Len(t, msgs, 1)
	assert.IsType(t, opponentDisconnectedMessage{}, msgs[0])
	assert.Empty(t, drain(joiner))
}

func TestNextLetter(t *testing.T) {
	assert.Equal(t, "M", nextLetter(""))
	assert.Equal(t, "A", nextLetter("M"))
	assert.Equal(t, "C", nextLetter("MAGI"))
	assert.Equal(t, "", nextLetter("MAGIC"), "full word is a no-op")
}
