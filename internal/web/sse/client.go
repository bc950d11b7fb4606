package sse

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

const (
	// Time between keepalive pings
	pingPeriod = 30 * time.Second

	// Reconnect delay suggested to browsers after the stream drops
	retryDelay = 3 * time.Second

	// Time allowed to write one message to the client. Each write sets a
	// fresh deadline, replacing the server-wide WriteTimeout.
	writeWait = 10 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client represents a connected SSE client
type Client struct {
	id          string
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a new SSE client
func NewClient(id string) *Client {
	return &Client{
		id:          id,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ServeSSE streams hub messages to one client until it goes away
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, clientID string) {
	// Check if SSE is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	write := func(b []byte) error {
		// Not every ResponseWriter supports deadlines; the write still goes out
		_ = rc.SetWriteDeadline(time.Now().Add(writeWait))
		if _, err := w.Write(b); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	client := NewClient(clientID)
	if !hub.Register(client) {
		http.Error(w, "Stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// The connected event names the client and sets the browser retry delay.
	// The roster replay follows it.
	hello, _ := json.Marshal(map[string]string{"status": "connected", "client_id": clientID})
	if err := write(connectedMessage(hello)); err != nil {
		return
	}

	// Create ticker for keepalive
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				return
			}
			if err := write(message); err != nil {
				return
			}

		case <-ticker.C:
			// Send keepalive comment
			if err := write([]byte(": keepalive\n\n")); err != nil {
				return
			}

		case <-r.Context().Done():
			// Client disconnected
			return
		}
	}
}

func connectedMessage(data []byte) []byte {
	msg := formatSSEMessage("connected", string(data))
	// Put the retry field inside the same event, before its terminating blank line
	msg = msg[:len(msg)-1]
	msg = append(msg, "retry: "+strconv.FormatInt(retryDelay.Milliseconds(), 10)+"\n\n"...)
	return msg
}
