package main

import (
	"fmt"
	"os"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/db"
	"github.com/hpungsan/diarist/internal/logging"
	"github.com/hpungsan/diarist/internal/mcp"
	"github.com/hpungsan/diarist/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"import": true, "fetch": true, "list": true, "export": true,
	"check": true, "delete": true, "report": true,
	"segment": true, "speaker": true, "undo": true, "redo": true,
	"gesture": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a short banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  diarist: speaker diarization annotation editor

  Usage: diarist <command> [options]
         diarist serve          web UI
         diarist --help

  MCP server mode requires piped input.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Help and version need neither config nor storage
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, logging.Nop())
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	baseDir, err := config.BaseDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}
	cwd, _ := os.Getwd()

	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	log := logging.New(cfg)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn().Strs("tools", unknown).Msg("ignoring unknown disabled_tools entries")
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Warn().Strs("types", unknown).Msg("ignoring unknown disabled_types entries")
	}

	var backend store.Backend
	database, err := db.Init(baseDir)
	if err != nil {
		// Editing still works; nothing outlives the process.
		log.Error().Err(err).Msg("storage unavailable, keeping annotations in memory")
		backend = store.NewMemoryBackend()
	} else {
		defer database.Close()
		db.ConfigurePool(database, cfg)
		backend = db.NewBackend(database)
	}

	st := store.New(backend,
		store.WithCapacity(cfg.StoreCapacity),
		store.WithLogger(logging.Component(log, "store")),
	)

	if isCLIMode() {
		app := newCLIApp(st, cfg, log)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'diarist --help' for usage.\n")
		os.Exit(1)
	}

	if err := mcp.Run(st, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
