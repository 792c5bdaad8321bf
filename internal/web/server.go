// Package web serves the modem console over HTTP: send a command, read the
// PSM state, and follow TX/RX/URC traffic live over a WebSocket.
package web

import (
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	uuid "github.com/google/uuid"
	"github.com/gorilla/websocket"

	"psm-modem-console/internal/atcmd"
	"psm-modem-console/internal/modem"
)

// Sender is the session as the web console uses it.
type Sender interface {
	Send(cmd atcmd.Command) ([]byte, error)
	State() modem.State
}

type TrafficEntry struct {
	Timestamp string `json:"timestamp"`
	ID        string `json:"id,omitempty"`
	Direction string `json:"direction"` // TX, RX or URC
	Data      string `json:"data"`
}

type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type SendResult struct {
	ID       string `json:"id"`
	Command  string `json:"command"`
	Response string `json:"response"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
}

type Server struct {
	sender     Sender
	logger     *log.Logger
	logSize    int
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.Mutex
	wsUpgrader websocket.Upgrader
	traffic    []TrafficEntry
	logMutex   sync.RWMutex
	limiter    *RateLimiter
}

// Per client limit on /api/send.
const (
	sendLimit  = 20
	sendWindow = 10 * time.Second
)

func NewServer(sender Sender, logSize int, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if logSize <= 0 {
		logSize = 50
	}
	return &Server{
		sender:    sender,
		logger:    logger,
		logSize:   logSize,
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter: NewRateLimiter(sendLimit, sendWindow),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/send", s.handleSend)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/log", s.handleLog)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Unsolicited records background reader output as URC traffic.
func (s *Server) Unsolicited(data []byte) {
	s.addTrafficEntry("", "URC", string(data))
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	line := atcmd.Sanitize(req.Command)
	if err := atcmd.Validate(line); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !s.limiter.Allow(clientHost(r)) {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	cmd := atcmd.New(line)
	id := uuid.NewString()
	s.logger.Printf("Received send request %s: %q", id, cmd)

	s.addTrafficEntry(id, "TX", cmd.String())
	resp, err := s.sender.Send(cmd)
	if len(resp) > 0 {
		s.addTrafficEntry(id, "RX", string(resp))
	}

	result := SendResult{
		ID:       id,
		Command:  cmd.Text(),
		Response: string(resp),
		State:    s.sender.State().String(),
	}
	status := http.StatusOK
	if err != nil {
		s.logger.Printf("Send %s failed: %v", id, err)
		result.Error = err.Error()
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"state": s.sender.State().String()})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	s.logMutex.RLock()
	defer s.logMutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.traffic)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// Register and replay under the same lock so a concurrent broadcast
	// cannot interleave writes on this connection.
	s.wsMutex.Lock()
	s.logMutex.RLock()
	for i := len(s.traffic) - 1; i >= 0; i-- {
		conn.WriteJSON(WebSocketMessage{Type: "traffic", Data: s.traffic[i]})
	}
	s.logMutex.RUnlock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.wsMutex.Lock()
			delete(s.wsClients, conn)
			s.wsMutex.Unlock()
			break
		}
	}
}

func (s *Server) addTrafficEntry(id, direction, data string) {
	entry := TrafficEntry{
		Timestamp: time.Now().Format("15:04:05"),
		ID:        id,
		Direction: direction,
		Data:      data,
	}

	s.logMutex.Lock()
	// Newest first
	s.traffic = append([]TrafficEntry{entry}, s.traffic...)
	if len(s.traffic) > s.logSize {
		s.traffic = s.traffic[:s.logSize]
	}
	s.logMutex.Unlock()

	s.broadcast(WebSocketMessage{Type: "traffic", Data: entry})
}

func (s *Server) broadcast(message WebSocketMessage) {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	for client := range s.wsClients {
		if err := client.WriteJSON(message); err != nil {
			s.logger.Printf("Error sending WebSocket message: %v", err)
			client.Close()
			delete(s.wsClients, client)
		}
	}
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
