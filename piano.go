// PianoVS
//
// Two players share a room: one records a melody on the piano, the other has
// to replay it from memory. Every failed replay earns a letter of "MAGIC";
// whoever spells the full word first loses.
//
// Features:
// - One WebSocket endpoint; rooms are created and joined in-protocol
// - Random 8-char hex room ids via crypto/rand, with server-side collision check
// - Tolerant melody comparison: chords, relative timing, duration buckets
// - Room is destroyed the moment either player disconnects
// - Out-of-turn and malformed messages are dropped without closing the socket
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	_ "embed"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type clientMessage struct {
	Type   string      `json:"type"`             // "create-room", "join-room", "melody-submit", "attempt-submit", "new-game", "forfeit"
	Name   string      `json:"name,omitempty"`   // create-room / join-room
	RoomID string      `json:"roomId,omitempty"` // join-room
	Notes  []NoteEvent `json:"notes,omitempty"`  // melody-submit / attempt-submit
}

// Messages sent to clients
type roomCreatedMessage struct {
	Type        string `json:"type"` // "room-created"
	RoomID      string `json:"roomId"`
	PlayerIndex int    `json:"playerIndex"`
}

type roomJoinedMessage struct {
	Type         string `json:"type"` // "room-joined"
	RoomID       string `json:"roomId"`
	PlayerIndex  int    `json:"playerIndex"`
	OpponentName string `json:"opponentName"`
}

type opponentJoinedMessage struct {
	Type         string `json:"type"` // "opponent-joined"
	OpponentName string `json:"opponentName"`
}

type gameStartMessage struct {
	Type        string    `json:"type"` // "game-start"
	CurrentTurn int       `json:"currentTurn"`
	Letters     [2]string `json:"letters"`
}

// Sent to the opponent only; the recorder never sees their own melody echoed.
type melodyReceivedMessage struct {
	Type  string      `json:"type"` // "melody-received"
	Notes []NoteEvent `json:"notes"`
}

type turnResultMessage struct {
	Type        string    `json:"type"` // "turn-result"
	Success     bool      `json:"success"`
	Letters     [2]string `json:"letters"`
	CurrentTurn int       `json:"currentTurn"`
}

type gameOverMessage struct {
	Type    string    `json:"type"` // "game-over"
	Loser   int       `json:"loser"`
	Letters [2]string `json:"letters"`
}

type opponentDisconnectedMessage struct {
	Type string `json:"type"` // "opponent-disconnected"
}

// Sent to the offending client only, for room-not-found / room-full.
type errorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type Client struct {
	conn *websocket.Conn
	send chan any

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan any, 8),
	}
}

// trySend queues msg for the write pump. Sends are best-effort: if the
// client's buffer is full or the connection is gone, the message is skipped,
// never queued or retried.
func (c *Client) trySend(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()

	_ = c.conn.Close()
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// pianoSession is the per-connection protocol state: at most a room id and a
// seat index, both unset until create-room or join-room succeeds.
type pianoSession struct {
	cfg    *Config
	reg    *Registry
	client *Client

	roomID      string
	playerIndex int
}

func (s *pianoSession) readPump() {
	defer s.disconnect()

	for {
		_, data, err := s.client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		s.dispatch(msg)
	}
}

func (s *pianoSession) dispatch(msg clientMessage) {
	switch msg.Type {
	case "create-room":
		s.createRoom(msg)
	case "join-room":
		s.joinRoom(msg)
	case "melody-submit":
		if room := s.room(); room != nil {
			room.submitMelody(s.playerIndex, msg.Notes)
		}
	case "attempt-submit":
		if room := s.room(); room != nil {
			room.submitAttempt(s.playerIndex, msg.Notes)
		}
	case "new-game":
		if room := s.room(); room != nil {
			room.restart()
		}
	case "forfeit":
		if room := s.room(); room != nil {
			room.forfeit(s.playerIndex)
		}
	default:
		// ignore unknown types
	}
}

// room resolves this session's room through the registry, so a handler never
// acts on a room that has already been destroyed.
func (s *pianoSession) room() *Room {
	if s.roomID == "" {
		return nil
	}
	return s.reg.get(s.roomID)
}

func (s *pianoSession) createRoom(msg clientMessage) {
	if s.roomID != "" {
		return
	}

	name := msg.Name
	if name == "" {
		name = "Player 1"
	}

	room := s.reg.create()
	room.seatCreator(s.client, name)

	s.roomID = room.id
	s.playerIndex = 0

	s.client.trySend(roomCreatedMessage{
		Type:        "room-created",
		RoomID:      room.id,
		PlayerIndex: 0,
	})

	logf(s.cfg, "GAMES: %q created room %s", name, room.id)
}

func (s *pianoSession) joinRoom(msg clientMessage) {
	if s.roomID != "" {
		return
	}

	room := s.reg.get(msg.RoomID)
	if room == nil {
		s.client.trySend(errorMessage{
			Type:    "error",
			Message: errRoomNotFound.Error(),
		})
		return
	}

	name := msg.Name
	if name == "" {
		name = "Player 2"
	}

	if err := room.join(s.client, name); err != nil {
		s.client.trySend(errorMessage{
			Type:    "error",
			Message: err.Error(),
		})
		return
	}

	s.roomID = room.id
	s.playerIndex = 1

	logf(s.cfg, "GAMES: %q joined room %s", name, room.id)
}

// disconnect tears the room down unconditionally: the survivor is notified,
// then the room is removed from the registry. No rejoin semantics.
func (s *pianoSession) disconnect() {
	if s.roomID != "" {
		if room := s.reg.get(s.roomID); room != nil {
			room.dropPlayer(s.client)
			s.reg.remove(s.roomID)
			logf(s.cfg, "GAMES: Room %s destroyed on disconnect", s.roomID)
		}
		s.roomID = ""
	}

	s.client.shutdown()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWSForRegistry(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		session := &pianoSession{
			cfg:    cfg,
			reg:    reg,
			client: newClient(conn),
		}

		go session.client.writePump()
		session.readPump()
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("roomid")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:roomid/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed piano/index.html
var indexHTML []byte

//go:embed piano/app.css
var pianoCSS []byte

//go:embed piano/app.js
var pianoJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(pianoCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(pianoJS)
	}
}

// registerPianoGame sets up routes so that:
//   - $path                  → HTML client (create mode)
//   - $path/:roomid          → HTML client (join mode, room id in the path)
//   - $path/:roomid/qr       → PNG QR code for that room URL
//   - /ws$path               → the WebSocket; rooms are chosen in-protocol
func registerPianoGame(cfg *Config, path string, mux *httprouter.Router) {
	reg := newRegistry()

	mux.GET(cfg.prefix+path, getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/:roomid", getIndexHandler(cfg))

	// Shared assets (no roomid in route)
	mux.GET(cfg.prefix+"/assets/piano/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/piano/app.js", getJsHandler(cfg))

	mux.GET(cfg.prefix+path+"/:roomid/qr", qrHandler)

	mux.GET(cfg.prefix+"/ws"+path, serveWSForRegistry(cfg, reg))
}
