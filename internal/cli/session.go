package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// Frame is a realtime request sent to the server
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Inbound is a realtime event received from the server
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ErrUnknownCommand is returned for session input that is not a lobby command
var ErrUnknownCommand = errors.New("unknown command")

// sessionOptions controls a realtime session
type sessionOptions struct {
	// frames are sent as soon as the connection is open
	frames []Frame
	// input, if set, is read line by line as session commands
	input io.Reader
	// limit stops the session after this many events. Zero streams until interrupted.
	limit int
	// onEvent sees every event before it is printed
	onEvent func(Inbound)
}

func newJoinCmd() *cobra.Command {
	var (
		watch  bool
		noSave bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "join <username>",
		Short: "Join the lobby as a new player",
		Long: `Open a realtime connection, join the lobby under a new username and
stream events until interrupted.

The credential returned by the server is saved to the credential file so
the player can be reclaimed later with "lobbyctl link".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutput(cmd)
			var frames []Frame
			if watch {
				frames = append(frames, Frame{Event: "player:watch", Data: true})
			}
			frames = append(frames, Frame{Event: "player:join", Data: args[0]})

			return runSession(cmd, out, sessionOptions{
				frames: frames,
				limit:  limit,
				onEvent: func(ev Inbound) {
					if noSave {
						return
					}
					saveCredential(out, ev)
				},
			})
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Also stream the lobby player count")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not save the credential")
	cmd.Flags().IntVar(&limit, "count", 0, "Exit after this many events (0 streams until interrupted)")

	return cmd
}

func newLinkCmd() *cobra.Command {
	var (
		watch bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "link [credential]",
		Short: "Reclaim an existing player",
		Long: `Open a realtime connection and reclaim the player owning a credential.
Without an argument the credential saved by the last join is used.

The server does not answer an unknown credential, so the command then
streams nothing until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			credential := ""
			if len(args) == 1 {
				credential = args[0]
			} else {
				saved, err := cfg.LoadCredential()
				if err != nil {
					return fmt.Errorf("failed to read credential: %w", err)
				}
				credential = saved
			}
			if credential == "" {
				return errors.New("no credential given and none saved; join first")
			}

			var frames []Frame
			if watch {
				frames = append(frames, Frame{Event: "player:watch", Data: true})
			}
			frames = append(frames, Frame{Event: "player:link", Data: credential})

			return runSession(cmd, newOutput(cmd), sessionOptions{frames: frames, limit: limit})
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Also stream the lobby player count")
	cmd.Flags().IntVar(&limit, "count", 0, "Exit after this many events (0 streams until interrupted)")

	return cmd
}

func newSessionCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Drive a realtime connection from stdin",
		Long: `Open a realtime connection and send one request per input line.

Commands:
  watch [on|off]    Subscribe to or stop the player count
  join <username>   Create a player
  edit <username>   Rename your player
  link <credential> Reclaim a player
  ready [on|off]    Toggle or set ready
  quit              Remove your player

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutput(cmd)
			return runSession(cmd, out, sessionOptions{
				input: cmd.InOrStdin(),
				limit: limit,
				onEvent: func(ev Inbound) {
					saveCredential(out, ev)
				},
			})
		},
	}

	cmd.Flags().IntVar(&limit, "count", 0, "Exit after this many events (0 streams until interrupted)")

	return cmd
}

// ParseCommand turns one line of session input into a request frame
func ParseCommand(line string) (Frame, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Frame{}, ErrUnknownCommand
	}
	name, rest := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "watch":
		on, err := parseSwitch(rest, true)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Event: "player:watch", Data: on}, nil
	case "join", "edit", "link":
		if len(rest) != 1 {
			return Frame{}, fmt.Errorf("%s takes exactly one argument", name)
		}
		return Frame{Event: "player:" + name, Data: rest[0]}, nil
	case "quit":
		return Frame{Event: "player:quit"}, nil
	case "ready":
		if len(rest) == 0 {
			return Frame{Event: "player:ready"}, nil
		}
		on, err := parseSwitch(rest, true)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Event: "player:ready", Data: on}, nil
	default:
		return Frame{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
}

func parseSwitch(args []string, def bool) (bool, error) {
	if len(args) == 0 {
		return def, nil
	}
	switch strings.ToLower(args[0]) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	v, err := strconv.ParseBool(args[0])
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", args[0])
	}
	return v, nil
}

func runSession(cmd *cobra.Command, out *Output, opts sessionOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := client.Dial(ctx, "/ws")
	if err != nil {
		return err
	}
	defer closeSocket(ws)

	// Unblock the read loop on interrupt
	go func() {
		<-ctx.Done()
		closeSocket(ws)
	}()

	if cfg.Output != "json" {
		out.PrintMessage("Connected to " + cfg.ServerURL)
	}

	for _, f := range opts.frames {
		if err := sendFrame(ws, out, f); err != nil {
			return err
		}
	}

	if opts.input != nil {
		go readCommands(ctx, ws, out, opts.input)
	}

	return readEvents(ctx, ws, out, opts)
}

// closeSocket says goodbye to the server and closes the connection. Safe to call twice.
func closeSocket(ws *websocket.Conn) {
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = ws.Close()
}

func sendFrame(ws *websocket.Conn, out *Output, f Frame) error {
	if cfg.Verbose {
		data, _ := json.Marshal(f)
		out.PrintMessage("> " + string(data))
	}
	if err := ws.WriteJSON(f); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

func readCommands(ctx context.Context, ws *websocket.Conn, out *Output, input io.Reader) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f, err := ParseCommand(line)
		if err != nil {
			out.PrintError(err)
			continue
		}
		if err := sendFrame(ws, out, f); err != nil {
			out.PrintError(err)
			return
		}
	}
}

func readEvents(ctx context.Context, ws *websocket.Conn, out *Output, opts sessionOptions) error {
	printed := 0
	for {
		var ev Inbound
		if err := ws.ReadJSON(&ev); err != nil {
			// Interrupts and server shutdowns end the session quietly
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if cfg.Output != "json" {
					out.PrintMessage("Disconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		if opts.onEvent != nil {
			opts.onEvent(ev)
		}
		out.PrintEvent(ev.Event, string(ev.Data))

		printed++
		if opts.limit > 0 && printed >= opts.limit {
			return nil
		}
	}
}

// saveCredential stores the credential carried by a join update
func saveCredential(out *Output, ev Inbound) {
	if ev.Event != "player:update" {
		return
	}
	var own struct {
		Credential string `json:"credential"`
	}
	if err := json.Unmarshal(ev.Data, &own); err != nil || own.Credential == "" {
		return
	}
	if err := cfg.SaveCredential(own.Credential); err != nil {
		out.PrintError(fmt.Errorf("failed to save credential: %w", err))
		return
	}
	if cfg.Verbose {
		out.PrintMessage("Credential saved to " + cfg.CredentialFile)
	}
}
