package main

import (
	"fmt"
	"io"
	"os"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/journal"
	"github.com/hpungsan/thoughts/internal/logging"
	"github.com/hpungsan/thoughts/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"notes": true, "show": true, "journal": true, "sessions": true,
	"frames": true, "discard": true, "recover": true,
	"export": true, "import": true,
	"record": true, "play": true, "serve": true, "mcp": true,
	"help": true,
}

// tuiCommands take over the terminal, so they log to the file and the
// systemd journal only.
var tuiCommands = map[string]bool{"record": true, "play": true}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	return isHelpOrVersion(args)
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  thoughts
  ~~~~~~~~
  Notes with replayable typing

  Usage: thoughts <command> [options]
         thoughts record
         thoughts --help

  MCP server mode requires piped input.`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening the store
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(nil, nil, logging.Discard())
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode(os.Args) && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'thoughts --help' for usage.\n")
		os.Exit(1)
	}

	baseDir, err := config.BaseDir()
	if err != nil {
		fail("%v", err)
	}
	cfg, err := config.Load(baseDir)
	if err != nil {
		fail("failed to load config: %v", err)
	}

	var stderr io.Writer = os.Stderr
	if len(os.Args) >= 2 && tuiCommands[os.Args[1]] {
		stderr = nil
	}
	logger, err := logging.FromConfig(cfg, stderr)
	if err != nil {
		fail("failed to set up logging: %v", err)
	}
	defer logger.Close()

	store, err := journal.Open(cfg)
	if err != nil {
		fail("failed to open store: %v", err)
	}
	defer store.Close()

	if isCLIMode(os.Args) {
		app := newCLIApp(store, cfg, logger.Logger)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			store.Close()
			os.Exit(1)
		}
		return
	}

	// MCP server mode (default)
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if err := mcp.Run(store, cfg, logger.Logger, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		store.Close()
		os.Exit(1)
	}
}
