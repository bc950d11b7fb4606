package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mcoot/lobbyhub/internal/dependencies/mocks"
	"github.com/mcoot/lobbyhub/internal/middleware"
	"github.com/mcoot/lobbyhub/internal/model"
	"github.com/mcoot/lobbyhub/internal/services/players"
	"github.com/mcoot/lobbyhub/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "test-event",
			data:      "hello world",
			expected:  "event: test-event\ndata: hello world\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "roster",
			data:      "[\n  {\"id\": \"p1\"}\n]",
			expected:  "event: roster\ndata: [\ndata:   {\"id\": \"p1\"}\ndata: ]\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatSSEMessage(tt.eventName, tt.data)
			if string(result) != tt.expected {
				t.Errorf("formatSSEMessage(%q, %q)\ngot:  %q\nwant: %q",
					tt.eventName, tt.data, string(result), tt.expected)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "single line",
			input:    "hello",
			expected: []string{"hello"},
		},
		{
			name:     "two lines",
			input:    "line1\nline2",
			expected: []string{"line1", "line2"},
		},
		{
			name:     "trailing newline",
			input:    "line1\n",
			expected: []string{"line1"},
		},
		{
			name:     "empty string",
			input:    "",
			expected: []string{""},
		},
		{
			name:     "crlf line endings",
			input:    "line1\r\nline2\r\n",
			expected: []string{"line1", "line2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitLines(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("splitLines(%q) returned %d lines, want %d",
					tt.input, len(result), len(tt.expected))
				return
			}
			for i, line := range result {
				if line != tt.expected[i] {
					t.Errorf("splitLines(%q)[%d] = %q, want %q",
						tt.input, i, line, tt.expected[i])
				}
			}
		})
	}
}

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testutil.NopLogger())
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub
}

func receive(t *testing.T, client *Client) string {
	t.Helper()
	select {
	case msg := <-client.send:
		return string(msg)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
		return ""
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := newRunningHub(t)

	client := NewClient("client1")
	hub.Register(client)

	// Give the hub time to process registration
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.BroadcastEvent("test-event", "test data")

	expected := "event: test-event\ndata: test data\n\n"
	if got := receive(t, client); got != expected {
		t.Errorf("client received %q, want %q", got, expected)
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := newRunningHub(t)

	client := NewClient("client1")
	hub.Register(client)

	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after unregister, want 0", hub.ClientCount())
	}
	if _, ok := <-client.send; ok {
		t.Error("send channel still open after unregister")
	}
}

func TestHub_BroadcastToMultipleClients(t *testing.T) {
	hub := newRunningHub(t)

	clients := []*Client{NewClient("client1"), NewClient("client2"), NewClient("client3")}
	for _, c := range clients {
		hub.Register(c)
	}

	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 3 {
		t.Errorf("ClientCount() = %d, want 3", hub.ClientCount())
	}

	hub.BroadcastEvent("update", "data")

	for i, client := range clients {
		expected := "event: update\ndata: data\n\n"
		if got := receive(t, client); got != expected {
			t.Errorf("client %d received %q, want %q", i+1, got, expected)
		}
	}
}

func TestHub_LateClientReceivesLastMessage(t *testing.T) {
	hub := newRunningHub(t)

	hub.BroadcastEvent("roster", "first")
	hub.BroadcastEvent("roster", "second")
	time.Sleep(10 * time.Millisecond)

	client := NewClient("late")
	hub.Register(client)

	expected := "event: roster\ndata: second\n\n"
	if got := receive(t, client); got != expected {
		t.Errorf("late client received %q, want %q", got, expected)
	}
}

func TestHub_BacklogKeepsNewestMessage(t *testing.T) {
	hub := NewHub(testutil.NopLogger())
	t.Cleanup(hub.Close)

	// Nothing drains the hub yet
	for i := 1; i <= 300; i++ {
		hub.BroadcastEvent("roster", fmt.Sprintf("v%d", i))
	}
	go hub.Run()

	client := NewClient("late")
	hub.Register(client)

	expected := "event: roster\ndata: v300\n\n"
	if got := receive(t, client); got != expected {
		t.Errorf("client received %q, want %q", got, expected)
	}
	select {
	case msg := <-client.send:
		t.Errorf("unexpected extra message %q", string(msg))
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_RegisterAfterClose(t *testing.T) {
	hub := NewHub(testutil.NopLogger())
	go hub.Run()
	hub.Close()
	hub.Close()

	if hub.Register(NewClient("client1")) {
		t.Error("Register succeeded on a closed hub")
	}
}

func TestBroadcaster_PublishesSecuredRoster(t *testing.T) {
	hub := newRunningHub(t)
	logger := testutil.NopLogger()
	roster := players.NewRoster(logger)
	registry := players.NewRegistry(roster,
		mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		mocks.NewMockRandom(), logger)
	broadcaster := NewBroadcaster(hub, roster, logger)
	defer broadcaster.Close()

	client := NewClient("client1")
	hub.Register(client)

	// Primed with the empty roster
	if got := receive(t, client); got != "event: roster\ndata: []\n\n" {
		t.Errorf("initial message = %q", got)
	}

	if _, err := registry.Join("alice", "conn-1"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	got := receive(t, client)
	if strings.Contains(got, "credential") {
		t.Errorf("roster event leaked a credential: %q", got)
	}
	data := strings.TrimSuffix(strings.TrimPrefix(got, "event: roster\ndata: "), "\n\n")
	var secured []model.SecuredPlayer
	if err := json.Unmarshal([]byte(data), &secured); err != nil {
		t.Fatalf("roster payload is not JSON: %v", err)
	}
	if len(secured) != 1 || secured[0].Username != "alice" || !secured[0].Connected {
		t.Errorf("roster payload = %+v", secured)
	}
}

func TestServeSSE_StreamsCurrentRoster(t *testing.T) {
	hub := newRunningHub(t)
	hub.BroadcastEvent(RosterEvent, `[{"id":"p1"}]`)
	time.Sleep(10 * time.Millisecond)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, hub, "client1")
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	buf := make([]byte, 0, 512)
	chunk := make([]byte, 256)
	deadline := time.Now().Add(time.Second)
	for !strings.Contains(string(buf), `data: [{"id":"p1"}]`) {
		if time.Now().After(deadline) {
			t.Fatalf("stream never carried the roster, got %q", string(buf))
		}
		n, err := resp.Body.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			t.Fatalf("read error = %v", err)
		}
	}
	if !strings.HasPrefix(string(buf), "event: connected\n") {
		t.Errorf("stream did not start with the connected event: %q", string(buf))
	}
}

// readLine returns the next line of the stream that contains want
func readLine(t *testing.T, r *bufio.Reader, want string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if strings.Contains(line, want) {
			return
		}
		if err != nil {
			t.Fatalf("stream ended before %q: %v", want, err)
		}
	}
}

func TestServeSSE_OutlivesServerWriteTimeout(t *testing.T) {
	hub := newRunningHub(t)
	handler := middleware.Logging(testutil.NopLogger(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, hub, "client1")
	}))
	server := httptest.NewUnstartedServer(handler)
	server.Config.WriteTimeout = 100 * time.Millisecond
	server.Start()
	defer server.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readLine(t, reader, "event: connected")

	time.Sleep(300 * time.Millisecond)
	hub.BroadcastEvent(RosterEvent, `["late"]`)

	readLine(t, reader, `data: ["late"]`)
}

func TestConnectedMessage(t *testing.T) {
	got := string(connectedMessage([]byte(`{"status":"connected"}`)))
	want := "event: connected\ndata: {\"status\":\"connected\"}\nretry: 3000\n\n"
	if got != want {
		t.Errorf("connectedMessage() = %q, want %q", got, want)
	}
}
