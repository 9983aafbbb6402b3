/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// Registry holds every live room, keyed by id. It is the only
// cross-connection shared state: handlers look rooms up per message and
// never hold a reference across the lookup, so a destroyed room is simply
// a lookup miss.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func newRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// create registers a new room under a crypto-random 8-char hex id,
// retrying on the off chance of a collision with a live room.
func (reg *Registry) create() *Room {
	for {
		buf := make([]byte, 4)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		id := hex.EncodeToString(buf)

		reg.mu.Lock()
		if _, exists := reg.rooms[id]; !exists {
			room := newRoom(id)
			reg.rooms[id] = room
			reg.mu.Unlock()
			return room
		}
		reg.mu.Unlock()
	}
}

func (reg *Registry) get(id string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.rooms[id]
}

func (reg *Registry) remove(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.rooms, id)
}

func (reg *Registry) count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return len(reg.rooms)
}
