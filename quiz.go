/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Quizbox websocket transport
//
// Every connection gets a random player id and may host or join any number
// of games. Inbound frames are JSON ClientMessages routed through the
// gateway; outbound frames are JSON events.
//
// Routes:
//   - $prefix/ws                 → websocket
//   - $prefix/game/:code         → join page for a game
//   - $prefix/game/:code/qr      → PNG QR code pointing at the join page
//   - $prefix/api/quizzes        → quizzes available by id
//   - $prefix/api/games/:code    → live snapshot of a game
//   - $prefix/api/results        → recently finished games, if archiving is on

package main

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/quizbox/games/quiz"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64

	defaultResultLimit = 10
	maxResultLimit     = 100

	qrSize = 320
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection.
type Client struct {
	id   quiz.PlayerID
	conn *websocket.Conn
	send chan quiz.Event

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   quiz.PlayerID(uuid.NewString()),
		conn: conn,
		send: make(chan quiz.Event, sendBuffer),
	}
}

func (c *Client) ID() quiz.PlayerID { return c.id }

// Deliver queues ev for writing. A client that cannot keep up is closed.
func (c *Client) Deliver(ev quiz.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- ev:
		return true
	default:
		c.closeLocked()
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump(ctx context.Context, gw *quiz.Gateway) {
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), timeout)
		gw.Disconnect(disconnectCtx, c)
		cancel()

		c.close()
		_ = c.conn.Close()

		log.Debug().Str("player", string(c.id)).Msg("WS: Disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("player", string(c.id)).Msg("WS: Unexpected close")
			}
			return
		}

		var msg quiz.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Str("player", string(c.id)).Msg("WS: Malformed message")
			continue
		}

		err = gw.Handle(ctx, c, msg)
		if err != nil {
			log.Debug().
				Err(err).
				Str("player", string(c.id)).
				Str("type", msg.Type).
				Str("game", msg.Code).
				Msg("WS: Message not applied")
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func serveWS(gw *quiz.Gateway) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Str("ip", realIP(r)).Msg("WS: Upgrade failed")
			return
		}

		client := newClient(conn)

		log.Debug().Str("player", string(client.id)).Str("ip", realIP(r)).Msg("WS: Connected")

		go client.writePump()
		client.readPump(r.Context(), gw)
	}
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("SERVE: Failed to encode response")
	}
}

func writeJSONError(cfg *Config, w http.ResponseWriter, status int, message string) {
	writeJSON(cfg, w, status, quiz.ErrorMessage{Message: message})
}

func serveQuizzes(cfg *Config, library *quiz.Library) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, library.List())
	}
}

func serveGameState(cfg *Config, games *quiz.GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, err := games.Get(ps.ByName("code"))
		if err != nil {
			writeJSONError(cfg, w, http.StatusNotFound, err.Error())
			return
		}

		writeJSON(cfg, w, http.StatusOK, hub.Snapshot())
	}
}

func serveResults(cfg *Config, results resultStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if results == nil {
			writeJSONError(cfg, w, http.StatusNotFound, "Result archive is disabled")
			return
		}

		limit := defaultResultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeJSONError(cfg, w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxResultLimit)
		}

		list, err := results.Recent(r.Context(), limit)
		if err != nil {
			log.Error().Err(err).Msg("SERVE: Failed to list results")
			writeJSONError(cfg, w, http.StatusInternalServerError, "Unable to load results")
			return
		}

		writeJSON(cfg, w, http.StatusOK, list)
	}
}

func joinURL(cfg *Config, r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + cfg.prefix + "/game/" + code
}

func serveJoinPage(cfg *Config, games *quiz.GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		hub, err := games.Get(ps.ByName("code"))
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, newPage("Not Found", html.EscapeString(err.Error())))
			return
		}

		snap := hub.Snapshot()
		_, _ = io.WriteString(w, newPage(html.EscapeString(snap.Title), "Join game "+snap.Code))
	}
}

// qrHandler generates a PNG QR code for a game's join URL.
func qrHandler(cfg *Config, games *quiz.GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, err := games.Get(ps.ByName("code"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(joinURL(cfg, r, hub.Code()), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func registerQuizGame(cfg *Config, svc *services, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/ws", serveWS(svc.gateway))

	mux.GET(cfg.prefix+"/game/:code", serveJoinPage(cfg, svc.games))
	mux.GET(cfg.prefix+"/game/:code/qr", qrHandler(cfg, svc.games))

	mux.GET(cfg.prefix+"/api/quizzes", serveQuizzes(cfg, svc.library))
	mux.GET(cfg.prefix+"/api/games/:code", serveGameState(cfg, svc.games))
	mux.GET(cfg.prefix+"/api/results", serveResults(cfg, svc.results))
}
