package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	flag "github.com/spf13/pflag"

	"github.com/jeremytregunna/aodkit/pkg/aod"
	"github.com/jeremytregunna/aodkit/pkg/common/log"
	"github.com/jeremytregunna/aodkit/pkg/config"
	"github.com/jeremytregunna/aodkit/pkg/replicator"
	"github.com/jeremytregunna/aodkit/pkg/task"
	"github.com/jeremytregunna/aodkit/pkg/telemetry"
)

// Command completer for readline
var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".exit"),
	readline.PcItem(".stats"),
	readline.PcItem(".config"),
	readline.PcItem("EVENT"),
	readline.PcItem("NEXT"),
	readline.PcItem("MODE",
		readline.PcItem("ALL"),
		readline.PcItem("ACCEPTED"),
	),
	readline.PcItem("SIZE"),
	readline.PcItem("AT"),
	readline.PcItem("SCAN"),
	readline.PcItem("RSCAN"),
	readline.PcItem("FINGERPRINT"),
	readline.PcItem("OUTPUT"),
)

const helpText = `
aodbrowse - browse the muon selection of generated AOD events.

Usage:
  aodbrowse [options]

Commands:
  .help                   - Show this help message
  .exit                   - Exit the program
  .stats                  - Show task statistics
  .config                 - Show the active configuration

  EVENT n                 - Select event n
  NEXT                    - Select the next event
  MODE ALL|ACCEPTED       - Iterate all tracks or accepted tracks only

  SIZE                    - Number of tracks in the current view
  AT i                    - Show the track at logical position i
  SCAN                    - List the view front to back
  RSCAN                   - List the view back to front
  FINGERPRINT             - Digest of the source positions in the view
  OUTPUT                  - Run the task on the current event and show the result
`

// options holds the command line settings
type options struct {
	ConfigPath   string
	Events       int
	Seed         uint64
	MCMode       int
	SPDTracklets bool
	LogLevel     string
	Batch        bool
	Telemetry    bool

	// changed records which flags were given explicitly
	changed map[string]bool
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	fs := flag.NewFlagSet("aodbrowse", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprintf(errOut, "Usage: aodbrowse [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(errOut, "\nStart aodbrowse and type .help for the command list\n")
	}

	var opts options
	fs.StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file (JSON with comments)")
	fs.IntVarP(&opts.Events, "events", "n", 10, "Number of events to generate")
	fs.Uint64Var(&opts.Seed, "seed", 1, "Generator seed")
	fs.IntVar(&opts.MCMode, "mc-mode", int(replicator.MCMuonRelated), "MC handling: 0 none, 1 muon related, 2 all")
	fs.BoolVar(&opts.SPDTracklets, "spd-tracklets", false, "Keep SPD tracklets in the output")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.Batch, "batch", false, "Read commands from stdin without a prompt")
	fs.BoolVar(&opts.Telemetry, "telemetry", false, "Enable telemetry export")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.Events < 0 {
		return options{}, fmt.Errorf("--events must not be negative")
	}

	opts.changed = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		opts.changed[f.Name] = true
	})
	return opts, nil
}

// loadConfig reads the configuration file, if any, and applies the flags on top
func loadConfig(opts options) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.Update(func(c *config.Config) {
		if opts.changed["mc-mode"] {
			c.MCMode = replicator.MCMode(opts.MCMode)
		}
		if opts.changed["spd-tracklets"] {
			c.WithSPDTracklets = opts.SPDTracklets
		}
		if opts.LogLevel != "" {
			c.LogLevel = opts.LogLevel
		}
		c.Telemetry.LoadFromEnv()
		if opts.Telemetry {
			c.Telemetry.Enabled = true
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func generateEvents(seed uint64, n int) []*aod.Event {
	gen := aod.NewGenerator(seed, aod.DefaultGeneratorOptions())
	events := make([]*aod.Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, gen.Next())
	}
	return events
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(2)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %s\n", err)
		os.Exit(1)
	}

	logger := log.NewStandardLogger(log.WithLevel(cfg.Level()))
	log.SetDefaultLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(cfg.Snapshot().Telemetry, telemetry.WithWriter(os.Stderr))
	if err != nil {
		logger.Error("telemetry disabled: %v", err)
		tel = telemetry.NewNoop()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown: %v", err)
		}
	}()

	t, err := task.New(cfg, task.WithLogger(logger), task.WithTelemetry(tel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating task: %s\n", err)
		os.Exit(1)
	}

	s, err := newSession(ctx, cfg, t, generateEvents(opts.Seed, opts.Events), os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output objects: %s\n", err)
		os.Exit(1)
	}

	if opts.Batch {
		err = runBatch(ctx, s, os.Stdin)
	} else {
		err = runInteractive(ctx, s)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}

	if err := t.Terminate(ctx); err != nil {
		logger.Error("terminate: %v", err)
	}
}

// runBatch executes one command per input line
func runBatch(ctx context.Context, s *session, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.execute(ctx, scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}

// runInteractive starts the interactive CLI mode
func runInteractive(ctx context.Context, s *session) error {
	fmt.Fprintln(s.out, "aodbrowse - enter .help for usage hints.")

	historyFile := filepath.Join(os.TempDir(), ".aodbrowse_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
		Stdout:          s.out,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	for ctx.Err() == nil {
		rl.SetPrompt(s.prompt())

		line, readErr := rl.Readline()
		if readErr != nil {
			if readErr == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if readErr == io.EOF {
				fmt.Fprintln(s.out, "Goodbye!")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", readErr)
		}

		if s.execute(ctx, line) {
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		}
	}
	return nil
}
