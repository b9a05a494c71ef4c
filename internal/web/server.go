package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"compass-tape.klederson.com/internal/config"
	"compass-tape.klederson.com/internal/heading"
	"compass-tape.klederson.com/internal/tape"
)

const (
	clientBuffer = 16
	writeWait    = 2 * time.Second
	minPNGWidth  = 100
	maxPNGWidth  = 4000
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local dashboards
	},
}

// Message is the JSON document served for a reading.
type Message struct {
	heading.Reading
	Time time.Time `json:"time"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server exposes the latest heading over HTTP and streams every accepted
// reading to websocket clients.
type Server struct {
	log *zap.SugaredLogger

	mu      sync.RWMutex
	last    Message
	have    bool
	clients map[*client]struct{}

	srv *http.Server
}

// NewServer creates a server. Call Start to listen, or mount Handler.
func NewServer(log *zap.SugaredLogger) *Server {
	return &Server{
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the routes of the web surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/heading", s.handleHeading)
	mux.HandleFunc("/api/tape.png", s.handleTapePNG)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "cannot listen on %s", addr)
	}
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.log.Infow("web server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorw("web server stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the listener and disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Publish records r as the latest reading and queues it for every client.
// It never blocks; a client too slow to keep up loses readings.
func (s *Server) Publish(r heading.Reading) {
	msg := Message{Reading: r, Time: time.Now()}
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Errorw("cannot encode reading", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = msg
	s.have = true
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (s *Server) latest() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.have
}

func (s *Server) handleHeading(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		s.log.Errorw("json encode error", "error", err)
	}
}

func (s *Server) handleTapePNG(w http.ResponseWriter, r *http.Request) {
	visible, err := queryInt(r, "visible", config.DefaultVisibleDegrees)
	if err != nil || visible < config.MinVisibleDegrees || visible > config.MaxVisibleDegrees {
		http.Error(w, "visible must be an integer between 60 and 180", http.StatusBadRequest)
		return
	}
	width, err := queryInt(r, "width", visible*config.DegreeWidth)
	if err != nil || width < minPNGWidth || width > maxPNGWidth {
		http.Error(w, "width must be an integer between 100 and 4000", http.StatusBadRequest)
		return
	}

	msg, ok := s.latest()
	opts := tape.ImageOptions{
		Width:          width,
		VisibleDegrees: visible,
		ShowNumeric:    true,
		Value:          tape.HeadingLabel(msg.Heading, ok),
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := tape.EncodePNG(w, msg.Heading, opts); err != nil {
		s.log.Errorw("png encode error", "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("websocket upgrade error", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	s.register(c)
	s.log.Debugw("websocket client connected", "remote", r.RemoteAddr)

	go s.writeLoop(c)

	// Clients never send anything useful; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debugw("websocket error", "error", err)
			}
			break
		}
	}
	s.unregister(c)
}

// register adds c and queues the latest reading so a new client never
// starts with an empty display.
func (s *Server) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
	if !s.have {
		return
	}
	if data, err := json.Marshal(s.last); err == nil {
		c.send <- data
	}
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Debugw("websocket write error", "error", err)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
