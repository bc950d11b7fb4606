package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		roster bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream lobby activity",
		Long: `Stream lobby activity in real-time.

By default a realtime connection subscribes to the player count and
prints each player:count event. With --roster the server's SSE endpoint
is streamed instead, printing the full (credential free) roster every
time it changes.

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutput(cmd)
			if roster {
				return streamRoster(cmd.Context(), out, limit)
			}
			return runSession(cmd, out, sessionOptions{
				frames: []Frame{{Event: "player:watch", Data: true}},
				limit:  limit,
			})
		},
	}

	cmd.Flags().BoolVar(&roster, "roster", false, "Stream the full roster over SSE")
	cmd.Flags().IntVar(&limit, "count", 0, "Exit after this many events (0 streams until interrupted)")

	return cmd
}

func streamRoster(parent context.Context, out *Output, limit int) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.URL("/api/v1/players/watch"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No timeout for SSE
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	jsonOutput := cfg.Output == "json"
	if !jsonOutput {
		out.PrintMessage("Connected to " + cfg.ServerURL)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var currentEvent string
	var dataLines []string
	printed := 0

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			// End of event
			if currentEvent != "" {
				out.PrintEvent(currentEvent, strings.Join(dataLines, "\n"))
				printed++
				if limit > 0 && printed >= limit {
					return nil
				}
			}
			currentEvent = ""
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil {
		// Context cancellation is expected
		if ctx.Err() != nil {
			if !jsonOutput {
				out.PrintMessage("Disconnected")
			}
			return nil
		}
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		out.PrintMessage("Disconnected")
	}
	return nil
}
