// Movie guessing sessions
//
// Every browser is identified by a cookie and owns exactly one Session,
// shared by all of its open tabs. The page talks to its session over a
// websocket:
//
// - Client sends "new" or "another" (with the raw year inputs), or "reveal"
// - Hub applies the action to the Session, one at a time
// - Hub renders the resulting View and pushes it to every connected tab
// - Sessions with no open tabs are reaped after --session-timeout

package main

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Messages coming from clients
type ClientMessage struct {
	Type    string `json:"type"`               // "new", "reveal", "another"
	MinYear string `json:"min_year,omitempty"` // new, another
	MaxYear string `json:"max_year,omitempty"` // new, another
}

// ViewMessage replaces the contents of the display element.
type ViewMessage struct {
	Type string   `json:"type"` // "view"
	Kind ViewKind `json:"kind"`
	HTML string   `json:"html"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type actionRequest struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	session *Session
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	actions  chan actionRequest
	done     chan struct{}
	stopOnce sync.Once

	// number of open tabs; written by run, read by the reaper
	connected atomic.Int32

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
}

func newHub(id string, session *Session) *Hub {
	now := time.Now()
	return &Hub{
		id:         id,
		session:    session,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		actions:    make(chan actionRequest),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	ready := h.session.catalog.Ready()

	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.connected.Add(1)
			h.touch()

			h.sendView(cfg, c, h.session.View())

		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.touch()
			}

		case a := <-h.actions:
			h.touch()
			h.handleAction(cfg, a)

		case <-ready:
			ready = nil
			h.broadcastView(cfg)

		case <-h.done:
			for c := range h.clients {
				h.drop(c)
				_ = c.conn.Close()
			}
			return
		}
	}
}

func (h *Hub) handleAction(cfg *Config, a actionRequest) {
	var err error

	switch a.msg.Type {
	case actionNew:
		err = h.session.NewRound(a.msg.MinYear, a.msg.MaxYear)
	case actionAnother:
		if a.msg.MinYear != "" || a.msg.MaxYear != "" {
			err = h.session.NewRound(a.msg.MinYear, a.msg.MaxYear)
		} else {
			err = h.session.TryAnother()
		}
	case actionReveal:
		h.session.Reveal()
	default:
		return
	}

	if err != nil {
		logf(cfg, "GAMES: Session %s: %s failed: %v", h.id, a.msg.Type, err)
	} else if r := h.session.Round(); r != nil {
		logf(cfg, "GAMES: Session %s: %s (%s, revealed=%t)", h.id, a.msg.Type, r.Movie.Name, r.Revealed())
	}

	h.broadcastView(cfg)
}

func (h *Hub) broadcastView(cfg *Config) {
	msg, ok := h.viewMessage(cfg, h.session.View())
	if !ok {
		return
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.drop(c)
		}
	}
}

func (h *Hub) sendView(cfg *Config, c *Client, v View) {
	msg, ok := h.viewMessage(cfg, v)
	if !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.connected.Add(-1)
}

func (h *Hub) viewMessage(cfg *Config, v View) (ViewMessage, bool) {
	html, err := v.HTML()
	if err != nil {
		logf(cfg, "ERROR: Session %s: failed to render %s view: %v", h.id, v.Kind, err)
		return ViewMessage{}, false
	}

	return ViewMessage{Type: "view", Kind: v.Kind, HTML: html}, true
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

func (h *Hub) idleSince() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}

// stop ends the run loop, which disconnects every client.
func (h *Hub) stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const playerCookieName = "movieguess_id"

func getOrSetPlayerID(cfg *Config, w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()

	path := "/"
	if cfg.prefix != "" {
		path = cfg.prefix + "/"
	}

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     path,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds one hub per player cookie.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	catalog     *CatalogStore
	idleTimeout time.Duration
}

func newGameManager(ctx context.Context, catalog *CatalogStore, idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		catalog:     catalog,
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop(ctx)
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, playerID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[playerID]; ok {
		return hub
	}

	hub := newHub(playerID, newSession(gm.catalog, nil))
	gm.hubs[playerID] = hub
	go hub.run(cfg)

	logf(cfg, "GAMES: Created session %s", playerID)

	return hub
}

func (gm *GameManager) count() int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	return len(gm.hubs)
}

// reap removes every hub with no open tabs that has been idle since before cutoff.
func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	reaped := 0
	for id, hub := range gm.hubs {
		if hub.connected.Load() == 0 && hub.idleSince().Before(cutoff) {
			delete(gm.hubs, id)
			hub.stop()
			reaped++
		}
	}
	return reaped
}

func (gm *GameManager) stopAll() {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.stop()
	}
}

func (gm *GameManager) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			gm.stopAll()
			return
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		}
	}
}

func serveWS(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(cfg, w, r)

		hub := gm.getHub(cfg, playerID)

		conn, err := upgrader.Upgrade(w, r, w.Header())
		if err != nil {
			logf(cfg, "ERROR: Websocket upgrade failed for %s: %v", realIP(r), err)
			return
		}

		// the server's request timeouts still apply to the hijacked connection
		_ = conn.SetReadDeadline(time.Time{})
		_ = conn.SetWriteDeadline(time.Time{})

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case actionNew, actionReveal, actionAnother:
			select {
			case h.actions <- actionRequest{client: c, msg: msg}:
			case <-h.done:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
