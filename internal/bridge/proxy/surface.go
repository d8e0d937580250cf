package proxy

import (
	"context"
	"fmt"
	"sync"

	go_json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// evalFrame is the outbound wire shape: the page shim evals the script
// on arrival.
type evalFrame struct {
	Type   string `json:"type"`
	Script string `json:"script"`
}

// wsSurface adapts one websocket connection to the bridge's Surface.
// One connection is one page instance; its lifetime is the page's.
type wsSurface struct {
	id   string
	conn *websocket.Conn

	// writeMu serializes writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex
}

func newWSSurface(conn *websocket.Conn) *wsSurface {
	return &wsSurface{id: uuid.NewString(), conn: conn}
}

func (s *wsSurface) ID() string {
	return s.id
}

func (s *wsSurface) Evaluate(_ context.Context, script string) error {
	frame, err := go_json.Marshal(evalFrame{Type: "eval", Script: script})
	if err != nil {
		return fmt.Errorf("encoding eval frame: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("writing eval frame: %w", err)
	}
	return nil
}

func (s *wsSurface) Close() error {
	return s.conn.Close()
}
