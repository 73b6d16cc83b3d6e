package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/drag"
	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/errors"
	"github.com/hpungsan/diarist/internal/logging"
	"github.com/hpungsan/diarist/internal/ops"
	"github.com/hpungsan/diarist/internal/report"
	"github.com/hpungsan/diarist/internal/session"
	"github.com/hpungsan/diarist/internal/store"
	"github.com/hpungsan/diarist/internal/web"
)

// maxStdinBytes caps label text and gestures read from stdin.
const maxStdinBytes = 16 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(st *store.Store, cfg *config.Config, log zerolog.Logger) *cli.App {
	app := &cli.App{
		Name:    "diarist",
		Usage:   "Speaker diarization annotation editor",
		Version: Version,
		Commands: []*cli.Command{
			importCmd(st, cfg),
			fetchCmd(st, cfg),
			listCmd(st),
			exportCmd(st, cfg),
			checkCmd(st, cfg),
			deleteCmd(st),
			reportCmd(st, cfg),
			segmentCmd(st, cfg),
			speakerCmd(st, cfg),
			historyCmd("undo", "Undo the last edit of a document", ops.Undo, st, cfg),
			historyCmd("redo", "Redo the last undone edit of a document", ops.Redo, st, cfg),
			gestureCmd(st, cfg),
			serveCmd(st, cfg, log),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// targetFlags address a stored document by key or by audio file.
func targetFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Document key (audio SHA-256)"},
		&cli.StringFlag{Name: "audio", Aliases: []string{"a"}, Usage: "Audio file to hash for the key"},
	}, extra...)
}

// target reads the document address. A positional argument is taken as the key.
func target(c *cli.Context) ops.Target {
	t := ops.Target{Key: c.String("key"), Audio: c.String("audio")}
	if t.Key == "" && c.NArg() > 0 {
		t.Key = c.Args().First()
	}
	return t
}

// importCmd creates the import command.
func importCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Replace a document's segments with RTTM labels (from --path or stdin)",
		ArgsUsage: "[key]",
		Flags: targetFlags(
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Label file (.rttm or .txt)"},
			&cli.Float64Flag{Name: "duration", Aliases: []string{"d"}, Usage: "Audio duration in seconds for the mismatch check"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Import even when labels do not fit the audio"},
		),
		Action: func(c *cli.Context) error {
			input := ops.ImportInput{
				Target:   target(c),
				Path:     c.String("path"),
				Duration: c.Float64("duration"),
				Force:    c.Bool("force"),
			}
			if input.Path == "" {
				text, err := labelsFromStdin()
				if err != nil {
					return outputError(err)
				}
				input.Text = text
			}

			output, err := ops.Import(c.Context, st, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a stored document",
		ArgsUsage: "[key]",
		Flags: targetFlags(
			&cli.BoolFlag{Name: "history", Usage: "Include undo/redo snapshots"},
			&cli.BoolFlag{Name: "labels", Usage: "Include the document serialized as RTTM"},
		),
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(c.Context, st, cfg, ops.FetchInput{
				Target:         target(c),
				IncludeHistory: c.Bool("history"),
				IncludeLabels:  c.Bool("labels"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored documents, most recently used first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, st, ops.ListInput{
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

// exportCmd creates the export command.
func exportCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a document to an RTTM file",
		ArgsUsage: "[key]",
		Flags: targetFlags(
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.diarist/exports/<audio>-<timestamp>.rttm)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Recording name written into each record"},
		),
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, st, cfg, ops.ExportInput{
				Target:        target(c),
				Path:          c.String("path"),
				RecordingName: c.String("name"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// checkCmd creates the check command.
func checkCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Check whether a document or label file fits an audio duration",
		ArgsUsage: "[key]",
		Flags: targetFlags(
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Label file to check instead of a stored document"},
			&cli.Float64Flag{Name: "duration", Aliases: []string{"d"}, Required: true, Usage: "Audio duration in seconds"},
		),
		Action: func(c *cli.Context) error {
			input := ops.CheckInput{
				Target:   target(c),
				Path:     c.String("path"),
				Duration: c.Float64("duration"),
			}
			if input.Key == "" && input.Audio == "" && input.Path == "" {
				text, err := labelsFromStdin()
				if err != nil {
					return outputError(err)
				}
				input.Text = text
			}

			output, err := ops.Check(c.Context, st, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a stored document",
		ArgsUsage: "[key]",
		Flags:     targetFlags(),
		Action: func(c *cli.Context) error {
			output, err := ops.DeleteDocument(c.Context, st, ops.DeleteInput{Target: target(c)})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// reportCmd creates the report command.
func reportCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Print a Markdown summary of a stored document",
		ArgsUsage: "[key]",
		Flags: targetFlags(
			&cli.Float64Flag{Name: "duration", Aliases: []string{"d"}, Usage: "Audio duration in seconds"},
		),
		Action: func(c *cli.Context) error {
			doc, err := ops.Fetch(c.Context, st, cfg, ops.FetchInput{Target: target(c)})
			if err != nil {
				return outputError(err)
			}
			md := report.Render(report.Metadata{
				Key:           doc.Key,
				FileName:      doc.FileName,
				SavedAt:       time.UnixMilli(doc.SavedAt),
				AudioDuration: c.Float64("duration"),
				HistoryDepth:  doc.HistoryDepth,
			}, doc.Segments, doc.ManualSpeakers)
			_, err = io.WriteString(os.Stdout, md)
			return err
		},
	}
}

// segmentCmd groups the segment edits.
func segmentCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "segment",
		Usage: "Create, update or delete segments of a stored document",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Add a segment to a speaker lane",
				Flags: targetFlags(
					&cli.StringFlag{Name: "speaker", Aliases: []string{"s"}, Required: true, Usage: "Speaker id"},
					&cli.Float64Flag{Name: "start", Required: true, Usage: "Start time in seconds"},
					&cli.Float64Flag{Name: "duration", Aliases: []string{"d"}, Required: true, Usage: "Duration in seconds"},
				),
				Action: func(c *cli.Context) error {
					output, err := ops.CreateSegment(c.Context, st, cfg, ops.CreateSegmentInput{
						Target:    target(c),
						SpeakerID: c.String("speaker"),
						StartTime: c.Float64("start"),
						Duration:  c.Float64("duration"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "update",
				Usage:     "Resize and/or relabel a segment",
				ArgsUsage: "<segment-id>",
				Flags: targetFlags(
					&cli.Float64Flag{Name: "start", Usage: "New start time"},
					&cli.Float64Flag{Name: "duration", Aliases: []string{"d"}, Usage: "New duration"},
					&cli.StringFlag{Name: "speaker", Aliases: []string{"s"}, Usage: "New speaker id"},
				),
				Action: func(c *cli.Context) error {
					input := ops.UpdateSegmentInput{
						Target:    ops.Target{Key: c.String("key"), Audio: c.String("audio")},
						SegmentID: c.Args().First(),
					}
					if c.IsSet("start") {
						v := c.Float64("start")
						input.StartTime = &v
					}
					if c.IsSet("duration") {
						v := c.Float64("duration")
						input.Duration = &v
					}
					if c.IsSet("speaker") {
						v := c.String("speaker")
						input.SpeakerID = &v
					}

					output, err := ops.UpdateSegment(c.Context, st, cfg, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove a segment",
				ArgsUsage: "<segment-id>",
				Flags:     targetFlags(),
				Action: func(c *cli.Context) error {
					output, err := ops.DeleteSegment(c.Context, st, cfg, ops.DeleteSegmentInput{
						Target:    ops.Target{Key: c.String("key"), Audio: c.String("audio")},
						SegmentID: c.Args().First(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// speakerCmd groups the speaker edits.
func speakerCmd(st *store.Store, cfg *config.Config) *cli.Command {
	addr := func(c *cli.Context) ops.Target {
		return ops.Target{Key: c.String("key"), Audio: c.String("audio")}
	}
	return &cli.Command{
		Name:  "speaker",
		Usage: "Add, remove, rename or merge speakers of a stored document",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add an empty speaker lane",
				Flags: targetFlags(),
				Action: func(c *cli.Context) error {
					output, err := ops.AddSpeaker(c.Context, st, cfg, target(c))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove an empty speaker lane",
				ArgsUsage: "<speaker>",
				Flags:     targetFlags(),
				Action: func(c *cli.Context) error {
					output, err := ops.RemoveSpeaker(c.Context, st, cfg, ops.SpeakerInput{
						Target:    addr(c),
						SpeakerID: c.Args().First(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "rename",
				Usage:     "Rename a speaker",
				ArgsUsage: "<from> <to>",
				Flags:     targetFlags(),
				Action: func(c *cli.Context) error {
					output, err := ops.RenameSpeaker(c.Context, st, cfg, ops.RenameSpeakerInput{
						Target: addr(c),
						From:   c.Args().Get(0),
						To:     c.Args().Get(1),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "merge",
				Usage:     "Fold one speaker's segments into another",
				ArgsUsage: "<source> <into>",
				Flags:     targetFlags(),
				Action: func(c *cli.Context) error {
					output, err := ops.MergeSpeakers(c.Context, st, cfg, ops.MergeSpeakersInput{
						Target: addr(c),
						Source: c.Args().Get(0),
						Into:   c.Args().Get(1),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

type historyOp func(context.Context, *store.Store, *config.Config, ops.Target) (*ops.MutationOutput, error)

// historyCmd creates the undo and redo commands.
func historyCmd(name, usage string, op historyOp, st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "[key]",
		Flags:     targetFlags(),
		Action: func(c *cli.Context) error {
			output, err := op(c.Context, st, cfg, target(c))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// gestureCmd creates the gesture command.
func gestureCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "gesture",
		Usage:     "Replay a recorded drag gesture (JSON on stdin) against a document",
		ArgsUsage: "[key]",
		Flags:     targetFlags(),
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("gesture JSON must be piped via stdin"))
			}
			var g drag.Gesture
			dec := json.NewDecoder(io.LimitReader(os.Stdin, maxStdinBytes))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&g); err != nil {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid gesture JSON: %v", err)))
			}

			output, err := ops.ReplayGesture(c.Context, st, cfg, ops.GestureInput{Target: target(c), Gesture: g})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(st *store.Store, cfg *config.Config, log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI over a live editing session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8765, Usage: "Port to listen on"},
			&cli.StringFlag{Name: "audio", Aliases: []string{"a"}, Usage: "Audio file to open on start"},
			&cli.Float64Flag{Name: "duration", Aliases: []string{"d"}, Usage: "Duration of --audio in seconds"},
		},
		Action: func(c *cli.Context) error {
			sess := newSession(st, cfg, log)
			defer func() {
				if err := sess.Close(); err != nil {
					log.Warn().Err(err).Msg("final autosave failed")
				}
			}()

			if path := c.String("audio"); path != "" {
				if err := openAudio(c.Context, sess, path, c.Float64("duration")); err != nil {
					return outputError(err)
				}
			}

			srv := web.NewServer(sess, st, cfg, Version, c.String("bind"), c.Int("port"), logging.Component(log, "web"))
			return web.Run(srv, log)
		},
	}
}

// newSession builds the live session the web UI edits.
func newSession(st *store.Store, cfg *config.Config, log zerolog.Logger) *session.Session {
	opts := []editor.Option{editor.WithHistoryLimit(cfg.HistoryLimit)}
	if cfg.LabelWidth > 0 {
		opts = append(opts, editor.WithLabelWidth(cfg.LabelWidth))
	}
	sessOpts := []session.Option{
		session.WithLogger(logging.Component(log, "session")),
		session.WithRecordingName(cfg.RecordingName),
	}
	if cfg.AutosaveDelayMs > 0 {
		sessOpts = append(sessOpts, session.WithAutosaveDelay(time.Duration(cfg.AutosaveDelayMs)*time.Millisecond))
	}
	return session.New(editor.New(opts...), st, sessOpts...)
}

// openAudio loads path into the session and waits for the hash.
func openAudio(ctx context.Context, sess *session.Session, path string, duration float64) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
		return errors.NewInvalidRequest(fmt.Sprintf("cannot open audio: %v", err))
	}
	defer f.Close()

	loaded := <-sess.LoadAudio(ctx, filepath.Base(path), f)
	if loaded.Err != nil {
		return errors.NewInternal(fmt.Errorf("hash audio: %w", loaded.Err))
	}
	if vt, ok := sess.Transport().(*session.VirtualTransport); ok && duration > 0 {
		vt.Load(duration)
	}
	return nil
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
	if dErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", dErr.Code, dErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// labelsFromStdin reads RTTM text piped on stdin.
func labelsFromStdin() (string, error) {
	if !stdinHasData() {
		return "", errors.NewInvalidRequest("labels must be given with --path or piped via stdin")
	}
	text, err := readStdin()
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if text == "" {
		return "", errors.NewInvalidRequest("labels are required")
	}
	return text, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads up to maxStdinBytes from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxStdinBytes {
		return "", fmt.Errorf("stdin exceeds %d bytes", maxStdinBytes)
	}
	return strings.TrimSpace(string(data)), nil
}
