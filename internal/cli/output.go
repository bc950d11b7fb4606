package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	mu     sync.Mutex // serializes writes from session goroutines
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(o.errOut, string(data))
	} else {
		fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.out, string(data))
	} else {
		fmt.Fprintln(o.out, msg)
	}
}

// PrintEvent outputs one streamed event. JSON output is one object per line.
func (o *Output) PrintEvent(event, data string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now()

	if o.format == "json" {
		evt := StreamEvent{
			Time:  now,
			Event: event,
			Data:  json.RawMessage(data),
		}
		if !json.Valid(evt.Data) {
			evt.Data, _ = json.Marshal(data)
		}
		jsonData, _ := json.Marshal(evt)
		fmt.Fprintln(o.out, string(jsonData))
		return
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	// Truncate data if it's too long for display
	displayData := data
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	displayData = strings.ReplaceAll(displayData, "\n", " ")
	fmt.Fprintf(o.out, "[%s] %s: %s\n", timestamp, event, displayData)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case PlayersResult:
		o.printPlayers(v)
	case Game:
		o.printGame(v)
	case GamesResult:
		o.printGames(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// StreamEvent is the JSON line written for each streamed event
type StreamEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Player response type (matches API)
type Player struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	Connected bool      `json:"connected"`
	JoinedAt  time.Time `json:"joined_at"`
}

// PlayersResult response type
type PlayersResult struct {
	Players []Player `json:"players"`
	Count   int      `json:"count"`
}

// Game response type
type Game struct {
	ID        string     `json:"id"`
	PlayerIDs []string   `json:"player_ids"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// GamesResult response type
type GamesResult struct {
	Games []Game `json:"games"`
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	Storage     string `json:"storage"`
	Connections int    `json:"connections"`
	Players     int    `json:"players"`
}

func (o *Output) printPlayer(p Player) {
	connected := "no"
	if p.Connected {
		connected = "yes"
	}
	fmt.Fprintf(o.out, "Player: %s (%s)\n", p.Username, p.ID)
	fmt.Fprintf(o.out, "Status: %s\n", p.Status)
	fmt.Fprintf(o.out, "Connected: %s\n", connected)
	fmt.Fprintf(o.out, "Joined: %s\n", p.JoinedAt.Format(time.RFC3339))
}

func (o *Output) printPlayers(r PlayersResult) {
	fmt.Fprintf(o.out, "Players (%d):\n", r.Count)
	for _, p := range r.Players {
		offline := ""
		if !p.Connected {
			offline = " [disconnected]"
		}
		fmt.Fprintf(o.out, "  - %s (%s) - %s%s\n", p.Username, p.ID, p.Status, offline)
	}
}

func (o *Output) printGame(g Game) {
	fmt.Fprintf(o.out, "Game: %s\n", g.ID)
	fmt.Fprintf(o.out, "Status: %s\n", g.Status)
	fmt.Fprintf(o.out, "Players: %s\n", strings.Join(g.PlayerIDs, ", "))
	fmt.Fprintf(o.out, "Started: %s\n", g.StartedAt.Format(time.RFC3339))
	if g.EndedAt != nil {
		fmt.Fprintf(o.out, "Ended: %s\n", g.EndedAt.Format(time.RFC3339))
	}
}

func (o *Output) printGames(r GamesResult) {
	fmt.Fprintf(o.out, "Games (%d):\n", len(r.Games))
	for _, g := range r.Games {
		fmt.Fprintf(o.out, "  - %s - %s - %s\n", g.ID, g.Status, strings.Join(g.PlayerIDs, ", "))
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.out, "Status: %s\n", h.Status)
	if h.Storage != "" {
		fmt.Fprintf(o.out, "Storage: %s\n", h.Storage)
	}
	fmt.Fprintf(o.out, "Connections: %d\n", h.Connections)
	fmt.Fprintf(o.out, "Players: %d\n", h.Players)
}
