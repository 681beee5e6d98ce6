package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/journal"
	"github.com/hpungsan/thoughts/internal/mcp"
	"github.com/hpungsan/thoughts/internal/ops"
	"github.com/hpungsan/thoughts/internal/tui"
	"github.com/hpungsan/thoughts/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(store journal.Store, cfg *config.Config, logger *slog.Logger) *cli.App {
	app := &cli.App{
		Name:    "thoughts",
		Usage:   "Notes with replayable typing",
		Version: Version,
		Commands: []*cli.Command{
			notesCmd(store),
			showCmd(store),
			journalCmd(store),
			sessionsCmd(store),
			framesCmd(store, cfg),
			discardCmd(store),
			recoverCmd(store),
			exportCmd(store, cfg),
			importCmd(store, cfg),
			recordCmd(store, cfg, logger),
			playCmd(store, cfg),
			serveCmd(store, cfg, logger),
			mcpCmd(store, cfg, logger),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// idFlag lets negative provisional ids be passed without "--".
var idFlag = &cli.Int64Flag{Name: "id", Usage: "Note id, or a negative provisional session id"}

// notesCmd creates the notes command.
func notesCmd(store journal.Store) *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "List notes, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Case-insensitive text filter"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListNotes(c.Context, store, ops.ListNotesInput{
				Query:  c.String("query"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(store journal.Store) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a note",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{idFlag},
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.FetchNote(c.Context, store, ops.FetchNoteInput{ID: id})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// journalCmd creates the journal command.
func journalCmd(store journal.Store) *cli.Command {
	return &cli.Command{
		Name:      "journal",
		Usage:     "List the recorded operations of a session in replay order",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{idFlag},
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.ListJournal(c.Context, store, ops.ListJournalInput{SessionID: id})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// sessionsCmd creates the sessions command.
func sessionsCmd(store journal.Store) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List journaled sessions never saved as a note",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Include sessions that belong to notes"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListSessions(c.Context, store, ops.ListSessionsInput{
				ProvisionalOnly: !c.Bool("all"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// framesCmd creates the frames command.
func framesCmd(store journal.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "frames",
		Usage:     "Reconstruct the replay frames and delays of a session",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			idFlag,
			&cli.Float64Flag{Name: "speed", Aliases: []string{"s"}, Usage: "Playback speed multiplier (default from config)"},
		},
		Action: func(c *cli.Context) error {
			input, err := playbackInput(c, cfg)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Playback(c.Context, store, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// discardCmd creates the discard command.
func discardCmd(store journal.Store) *cli.Command {
	return &cli.Command{
		Name:      "discard",
		Usage:     "Delete the typing history of a session (the note itself is kept)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			idFlag,
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the deletion"},
		},
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}
			if !c.Bool("yes") {
				return outputError(errors.NewInvalidRequest("discard cannot be undone; pass --yes to confirm"))
			}
			output, err := ops.Discard(c.Context, store, ops.DiscardInput{SessionID: id})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// recoverCmd creates the recover command.
func recoverCmd(store journal.Store) *cli.Command {
	return &cli.Command{
		Name:      "recover",
		Usage:     "Save an unsaved session as a note, keeping its history",
		ArgsUsage: "<session-id>",
		Flags:     []cli.Flag{idFlag},
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Recover(c.Context, store, ops.RecoverInput{SessionID: id})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(store journal.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export notes and their journals to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.thoughts/exports/thoughts-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, store, cfg, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(store journal.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import notes and their journals from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Id collision mode: error|skip|renumber"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, store, cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// recordCmd creates the record command.
func recordCmd(store journal.Store, cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Write a note in the terminal; ctrl+r toggles keystroke recording",
		Action: func(c *cli.Context) error {
			writer := journal.NewWriter(store, journal.WriterOptions{
				QueueSize: cfg.AppendQueueSize,
				Logger:    logger,
			})
			model := tui.NewRecorder(store, writer, cfg, logger, Version)
			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(c.Context)).Run()

			closeErr := writer.Close()
			written, dropped, failed := writer.Stats()
			logger.Debug("recorder closed", "written", written, "dropped", dropped, "failed", failed)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if closeErr != nil {
				return outputError(closeErr)
			}
			return nil
		},
	}
}

// playCmd creates the play command.
func playCmd(store journal.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Replay a note's typing in the terminal",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			idFlag,
			&cli.Float64Flag{Name: "speed", Aliases: []string{"s"}, Usage: "Playback speed multiplier (default from config)"},
		},
		Action: func(c *cli.Context) error {
			input, err := playbackInput(c, cfg)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Playback(c.Context, store, input)
			if err != nil {
				return outputError(err)
			}
			model, err := tui.NewPlayer(cfg, output, Version)
			if err != nil {
				return outputError(err)
			}
			if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(c.Context)).Run(); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(store journal.Store, cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (default from config, 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (default from config, 8417)"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("bind") {
				cfg.WebBind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.WebPort = c.Int("port")
			}
			srv, err := web.NewServer(store, cfg, logger, Version)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(c.Context, srv, logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(store journal.Store, cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve MCP over stdio",
		Action: func(c *cli.Context) error {
			if err := mcp.Run(store, cfg, logger, Version); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	e := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", e.Code, e.Message), 1)
}

// idArg reads the id from --id or the first argument. A negative id given
// as an argument must follow "--".
func idArg(c *cli.Context) (int64, error) {
	if c.IsSet("id") {
		if id := c.Int64("id"); id != 0 {
			return id, nil
		}
		return 0, errors.NewInvalidRequest("id must not be 0")
	}
	if c.NArg() == 0 {
		return 0, errors.NewInvalidRequest("id is required")
	}
	return parseID(c.Args().First())
}

// parseID parses a non-zero note or session id.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid id %q", s))
	}
	return id, nil
}

// playbackInput combines the id, the --speed flag and the config defaults.
func playbackInput(c *cli.Context, cfg *config.Config) (ops.PlaybackInput, error) {
	id, err := idArg(c)
	if err != nil {
		return ops.PlaybackInput{}, err
	}
	speed := cfg.DefaultSpeed
	if c.IsSet("speed") {
		speed = c.Float64("speed")
		if speed <= 0 {
			return ops.PlaybackInput{}, errors.NewInvalidSpeed(speed)
		}
	}
	return ops.PlaybackInput{ID: id, Speed: speed, MaxDelay: cfg.MaxDelay()}, nil
}
