// MetaGame Scoreboard
//
// Tracks per-player scores across the rounds of one game sitting. Each
// scoreboard lives at its own URL and is driven over a WebSocket.
//
// Features:
// - WebSockets per session ID: /path/:gameid and /path/:gameid/ws
// - One hub goroutine per session applies actions strictly one at a time
// - Every applied action broadcasts a full state snapshot to every tab
// - Refused actions (removing the last player) are answered only to the sender
// - Sessions auto-reaped after a configurable idle timeout
// - Random 8-char session IDs via crypto/rand, with server-side collision check
// - JSON state at /path/:gameid/state
// - In-browser QR button to share the current session, backed by go-qrcode
// - Shareable result image at /path/:gameid/result.png

package main

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/metagame/scoreboard"
)

const (
	maxMessageSize = 4096
	gameIDLength   = 8
)

var (
	errUnknownAction  = errors.New("unknown action")
	errInvalidMessage = errors.New("invalid message")
)

// Messages coming from clients
type ClientMessage struct {
	Type         string `json:"type"`                    // see Hub.apply
	PlayerID     string `json:"player_id,omitempty"`     // remove_player, set_name, set_score, adjust_score
	Name         string `json:"name,omitempty"`          // add_player, set_name, set_game_name
	Value        int    `json:"value,omitempty"`         // set_score
	Delta        int    `json:"delta,omitempty"`         // adjust_score
	ClearHistory bool   `json:"clear_history,omitempty"` // reset
}

// StateMessage carries a complete snapshot of the session.
type StateMessage struct {
	Type      string `json:"type"` // "state"
	SessionID string `json:"session_id"`
	scoreboard.Snapshot
}

// RejectedMessage is sent only to the client whose action was refused.
type RejectedMessage struct {
	Type    string `json:"type"`   // "rejected"
	Action  string `json:"action"` // the refused action type
	Message string `json:"message"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

type actionRequest struct {
	client *Client
	msg    ClientMessage
	err    error // decode failure, answered without applying msg
}

type Hub struct {
	id      string
	session *scoreboard.Session
	clients map[*Client]bool
	metrics *Metrics

	register chan *Client
	unreg    chan *Client
	actions  chan actionRequest
	done     chan struct{}
	once     sync.Once

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newHub(gameID string, m *Metrics) *Hub {
	now := time.Now()
	return &Hub{
		id:         gameID,
		session:    scoreboard.New(),
		clients:    make(map[*Client]bool),
		metrics:    m,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		actions:    make(chan actionRequest),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true
			h.metrics.clients.Inc()
			h.sendLocked(c, h.stateLocked())
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.dropLocked(c)
			h.mu.Unlock()

		case ar := <-h.actions:
			h.handleAction(cfg, ar)

		case <-h.done:
			return
		}
	}
}

// handleAction applies one action and answers a refusal to its sender only.
func (h *Hub) handleAction(cfg *Config, ar actionRequest) {
	err := ar.err
	if err == nil {
		err = h.apply(ar.msg)
	}
	if err == nil {
		h.metrics.actions.WithLabelValues(ar.msg.Type, "applied").Inc()
		if ar.msg.Type == "close_round" {
			h.metrics.roundsClosed.Inc()
		}
		debugf(cfg, "GAMES: Applied %s in %s", ar.msg.Type, h.id)

		return
	}

	outcome := "rejected"
	switch {
	case errors.Is(err, errUnknownAction):
		outcome = "unknown"
	case errors.Is(err, errInvalidMessage):
		outcome = "invalid"
	}
	h.metrics.actions.WithLabelValues(actionLabel(ar.msg.Type), outcome).Inc()
	debugf(cfg, "GAMES: Rejected %q in %s: %v", ar.msg.Type, h.id, err)

	h.mu.Lock()
	defer h.mu.Unlock()

	if ar.client == nil || !h.clients[ar.client] {
		return
	}

	h.sendLocked(ar.client, RejectedMessage{
		Type:    "rejected",
		Action:  ar.msg.Type,
		Message: rejectionText(err),
	})
	h.sendLocked(ar.client, h.stateLocked())
}

// apply mutates the session and broadcasts the new state under one lock, so
// no observer ever sees a half-applied action.
func (h *Hub) apply(msg ClientMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	id := scoreboard.PlayerID(msg.PlayerID)

	var err error
	switch msg.Type {
	case "add_player":
		h.session.AddPlayer(msg.Name)
	case "remove_player":
		err = h.session.RemovePlayer(id)
	case "set_name":
		err = h.session.SetName(id, msg.Name)
	case "set_score":
		err = h.session.SetScore(id, msg.Value)
	case "adjust_score":
		err = h.session.AdjustScore(id, msg.Delta)
	case "close_round":
		h.session.CloseRound()
	case "reset":
		h.session.Reset(msg.ClearHistory)
	case "set_game_name":
		h.session.SetGameName(msg.Name)
	default:
		err = errUnknownAction
	}
	if err != nil {
		return err
	}

	h.broadcastLocked(h.stateLocked())

	return nil
}

func (h *Hub) snapshot() StateMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.stateLocked()
}

func (h *Hub) stateLocked() StateMessage {
	return StateMessage{
		Type:      "state",
		SessionID: h.id,
		Snapshot:  h.session.Snapshot(),
	}
}

// sendLocked drops clients that can't keep up instead of blocking the hub.
func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		h.dropLocked(c)
	}
}

// dropLocked forgets a client exactly once, however it leaves.
func (h *Hub) dropLocked(c *Client) {
	if !h.clients[c] {
		return
	}

	delete(h.clients, c)
	close(c.send)
	h.metrics.clients.Dec()
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// closeAll disconnects all clients of this hub and stops its loop.
func (h *Hub) closeAll() {
	h.once.Do(func() {
		close(h.done)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		h.dropLocked(c)
	}
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, scoreboard.ErrLastPlayer):
		return "O placar precisa de pelo menos um jogador."
	case errors.Is(err, scoreboard.ErrUnknownPlayer):
		return "Jogador não encontrado; a página foi atualizada."
	case errors.Is(err, errInvalidMessage):
		return "Valor inválido; a alteração foi descartada."
	default:
		return "Ação desconhecida."
	}
}

// actionLabel bounds the label values of unknown actions.
func actionLabel(action string) string {
	switch action {
	case "add_player", "remove_player", "set_name", "set_score", "adjust_score", "close_round", "reset", "set_game_name":
		return action
	default:
		return "other"
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// GameManager holds a set of hubs keyed by session ID, so each $path/$gameid
// is its own isolated scoreboard.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	metrics     *Metrics
	stop        chan struct{}
	stopOnce    sync.Once
}

func newGameManager(idleTimeout time.Duration, m *Metrics) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		metrics:     m,
		stop:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gameID, gm.metrics)
	gm.hubs[gameID] = hub
	go hub.run(cfg)

	gm.metrics.sessionsTotal.Inc()
	gm.metrics.sessionsActive.Set(float64(len(gm.hubs)))
	logf(cfg, "GAMES: Started scoreboard %s", gameID)

	return hub
}

// lookupHub returns the hub of a running session without creating one.
func (gm *GameManager) lookupHub(gameID string) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[gameID]

	return hub, ok
}

// newGameID generates a crypto-random session ID and ensures it doesn't
// collide with existing sessions.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, gameIDLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, gameIDLength)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap removes hubs that have been idle since before cutoff and returns how
// many were removed.
func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	removed := 0
	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()
			removed++
		}
	}
	gm.metrics.sessionsActive.Set(float64(len(gm.hubs)))

	return removed
}

func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		case <-gm.stop:
			return
		}
	}
}

// Close stops the reaper and ends every session.
func (gm *GameManager) Close() {
	gm.stopOnce.Do(func() {
		close(gm.stop)
	})

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.closeAll()
	}
	gm.metrics.sessionsActive.Set(0)
}

func validGameID(id string) bool {
	if id == "" || len(id) > 32 {
		return false
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if !validGameID(gameID) {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		hub := gm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			debugf(cfg, "GAMES: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
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

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		// A bad payload is answered, not fatal; only transport errors end the loop.
		ar := actionRequest{client: c}
		if err := json.Unmarshal(data, &ar.msg); err != nil {
			ar.err = fmt.Errorf("%w: %v", errInvalidMessage, err)
		}

		select {
		case h.actions <- ar:
		case <-h.done:
			return
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

// sessionURL derives the public URL of a session page, respecting TLS and
// X-Forwarded-Proto if present.
func sessionURL(r *http.Request, pagePath string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + pagePath
}

// QR handler: generates a PNG QR code for the current session URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !validGameID(ps.ByName("gameid")) {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the session URL.
	url := sessionURL(r, strings.TrimSuffix(r.URL.Path, "/qr"))

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func serveState(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if !validGameID(gameID) {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		hub, ok := gm.lookupHub(gameID)
		if !ok {
			http.Error(w, "unknown game", http.StatusNotFound)
			return
		}

		state := hub.snapshot()

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_ = json.NewEncoder(w).Encode(state)
	}
}

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validGameID(ps.ByName("gameid")) {
			http.NotFound(w, r)
			return
		}

		data, err := assets.ReadFile("assets/scoreboard/index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(data)
	}
}

// redirectNewGame handles GET /path by generating a new random session ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created scoreboard %s%s/%s", cfg.prefix, path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerScoreboard sets up routes so that:
//   - $path                    → redirects to a new random session (8-char ID)
//   - $path/:gameid            → HTML client
//   - $path/:gameid/ws         → WebSocket for that session
//   - $path/:gameid/state      → JSON snapshot
//   - $path/:gameid/qr         → PNG QR code for that session URL
//   - $path/:gameid/result.png → shareable ranking image
func registerScoreboard(cfg *Config, path string, deps dependencies, mux *httprouter.Router) *GameManager {
	gm := newGameManager(cfg.sessionTimeout, deps.metrics)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/state", serveState(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)

	mux.GET(cfg.prefix+path+"/:gameid/result.png", serveResultImage(cfg, gm, deps))

	return gm
}
