// Package main provides the CLI entrypoint for tabhero.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/tabhero/internal/config"
	"github.com/verte-zerg/tabhero/internal/detector"
	"github.com/verte-zerg/tabhero/internal/engine"
	"github.com/verte-zerg/tabhero/internal/feed"
	"github.com/verte-zerg/tabhero/internal/logging"
	"github.com/verte-zerg/tabhero/internal/model"
	"github.com/verte-zerg/tabhero/internal/scoring"
	"github.com/verte-zerg/tabhero/internal/stats"
	"github.com/verte-zerg/tabhero/internal/store"
	"github.com/verte-zerg/tabhero/internal/tui"
)

var (
	scoreMethod  string
	fixedScore   float64
	minScore     float64
	maxScore     float64
	storeBackend string
	dbPath       string
	logLevel     string

	watchFile      string
	watchFromStart bool
	watchPlain     bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tabhero",
		Short:         "Score accepted inline completions",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runWatchCmd,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&scoreMethod, "method", string(config.DefaultMethod), "scoring method: quality, fixed or random")
	pf.Float64Var(&fixedScore, "fixed-score", config.DefaultFixedScore, "points per completion for the fixed method")
	pf.Float64Var(&minScore, "min-score", config.DefaultMinScore, "lowest score a completion can earn")
	pf.Float64Var(&maxScore, "max-score", config.DefaultMaxScore, "highest score a completion can earn")
	pf.StringVar(&storeBackend, "store", config.BackendSQLite, "storage backend: sqlite or bolt")
	pf.StringVar(&dbPath, "db", "", "database path (default: XDG data dir)")
	pf.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")

	addWatchFlags(rootCmd)

	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newDemoCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newRanksCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Score completions from an edit-event feed",
		Args:  cobra.NoArgs,
		RunE:  runWatchCmd,
	}
	addWatchFlags(cmd)
	return cmd
}

func addWatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&watchFile, "file", "", "follow a JSONL feed file instead of stdin")
	cmd.Flags().BoolVar(&watchFromStart, "from-start", false, "replay the feed file from the beginning")
	cmd.Flags().BoolVar(&watchPlain, "plain", false, "log scores instead of running the live view")
}

// app holds the components shared by the long-running commands.
type app struct {
	source    *config.FileSource
	logger    *log.Logger
	logCloser io.Closer
	store     store.Backend
	tracker   *stats.Tracker
	engine    *engine.Engine
}

type appOptions struct {
	// fileLog sends logs to the log file because a TUI owns the terminal.
	fileLog bool
	// memory keeps stats in process memory.
	memory bool
}

func openApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	cfgPath := config.DefaultConfigPath()
	fileCfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "store", &storeBackend, fileCfg.Store.Backend)
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Store.Path)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)

	overrides, err := flagOverrides(cmd)
	if err != nil {
		return nil, err
	}

	a := &app{}
	if opts.fileLog {
		logger, closer, err := logging.Open(config.DefaultLogPath(), logLevel)
		if err != nil {
			return nil, err
		}
		a.logger = logger
		a.logCloser = closer
	} else {
		a.logger = logging.New(cmd.ErrOrStderr(), logLevel)
	}
	a.source = config.NewFileSource(cfgPath, a.logger, overrides...)

	if opts.memory {
		a.store = store.NewMemory()
	} else {
		path := dbPath
		if path == "" {
			path = config.DefaultDBPath(storeBackend)
		}
		st, err := store.OpenBackend(storeBackend, path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		a.store = st
		a.logger.Debug("opened store", "backend", storeBackend, "path", path)
	}

	a.tracker = stats.NewTracker(a.store, stats.WithLogger(a.logger))
	a.engine = engine.New(a.source, detector.New(a.logger), scoring.New(a.source), a.tracker,
		engine.WithHistory(a.store),
		engine.WithLogger(a.logger),
	)
	return a, nil
}

func (a *app) Close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close db", "err", err)
		}
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// feedFunc drives the engine until the source is exhausted or ctx is done.
type feedFunc func(ctx context.Context) error

func runWatchCmd(cmd *cobra.Command, _ []string) error {
	interactive := !watchPlain && isTerminal(os.Stdout)
	if watchFile == "" && stdinIsTerminal() {
		return fmt.Errorf("no feed: pipe edit events on stdin or pass --file")
	}

	a, err := openApp(cmd, appOptions{fileLog: interactive})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	label := "stdin"
	run := func(ctx context.Context) error {
		return feed.Decode(ctx, cmd.InOrStdin(), a.engine)
	}
	if watchFile != "" {
		label = filepath.Base(watchFile)
		var opts []feed.TailOption
		if watchFromStart {
			opts = append(opts, feed.FromStart())
		}
		run = func(ctx context.Context) error {
			return feed.Tail(ctx, watchFile, a.engine, opts...)
		}
	}

	if !interactive {
		return runPlain(ctx, cmd.OutOrStdout(), a, run)
	}
	return runLive(ctx, a, run, label, watchFile == "")
}

// runPlain prints one line per scored completion and a summary at the end.
func runPlain(ctx context.Context, w io.Writer, a *app, run feedFunc) error {
	unsubscribe := a.engine.Subscribe(func(ev engine.ScoreEvent) {
		s := a.tracker.SessionStats()
		line := fmt.Sprintf("+%d %s %s:%d  session %d (%s)",
			ev.Result.Score, ev.Result.Method,
			filepath.Base(ev.Record.DocumentURI), ev.Acceptance.Position.Line+1,
			s.Score, s.Rank)
		if _, err := fmt.Fprintln(w, line); err != nil {
			a.logger.Error("failed to write output", "err", err)
		}
	})
	defer unsubscribe()

	rank := a.tracker.SessionStats().Rank
	unsubscribeStats := a.tracker.Subscribe(func(s model.SessionStats, _ model.AllTimeStats) {
		if stats.IsRankHigher(s.Rank, rank) {
			if _, err := fmt.Fprintf(w, "Rank up: %s\n", s.Rank); err != nil {
				a.logger.Error("failed to write output", "err", err)
			}
		}
		rank = s.Rank
	})
	defer unsubscribeStats()

	if err := ignoreCanceled(run(ctx)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return stats.RenderSummary(w, a.tracker.SessionStats(), a.tracker.AllTimeStats())
}

// runLive runs the live view while run feeds the engine in the background.
func runLive(ctx context.Context, a *app, run feedFunc, label string, inputTTY bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := tui.NewModel(a.tracker.SessionStats(), a.tracker.AllTimeStats(), tui.Options{
		Config:  a.source,
		History: a.store,
		// Reset notifies subscribers, which send to the program, so it cannot run
		// on the program loop. The engine orders it after the record in flight.
		OnReset: func() { go a.engine.ResetSession() },
		Source:  label,
		Logger:  a.logger,
	})
	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if inputTTY {
		opts = append(opts, tea.WithInputTTY())
	}
	program := tea.NewProgram(m, opts...)

	go func() {
		unsubscribe := a.engine.Subscribe(func(ev engine.ScoreEvent) {
			program.Send(tui.ScoreMsg{Event: ev})
		})
		defer unsubscribe()
		unsubscribeStats := a.tracker.Subscribe(func(s model.SessionStats, all model.AllTimeStats) {
			program.Send(tui.StatsMsg{Session: s, AllTime: all})
		})
		defer unsubscribeStats()

		program.Send(tui.FeedDoneMsg{Err: ignoreCanceled(run(ctx))})
	}()
	go func() {
		err := config.Watch(ctx, a.source.Path(), func() {
			program.Send(tui.ConfigReloadedMsg{})
		})
		if err != nil {
			a.logger.Warn("config watcher stopped", "err", err)
		}
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// flagOverrides turns explicitly set scoring flags into config overrides
// applied on top of every config reload.
func flagOverrides(cmd *cobra.Command) ([]config.Override, error) {
	var overrides []config.Override
	flags := cmd.Flags()
	if flags.Changed("method") {
		method, ok := model.ParseScoreMethod(strings.ToLower(strings.TrimSpace(scoreMethod)))
		if !ok {
			return nil, fmt.Errorf("--method must be one of quality, fixed, random")
		}
		overrides = append(overrides, func(c *model.Config) { c.Method = method })
	}
	if flags.Changed("fixed-score") {
		v := fixedScore
		overrides = append(overrides, func(c *model.Config) { c.FixedScore = v })
	}
	if flags.Changed("min-score") {
		v := minScore
		overrides = append(overrides, func(c *model.Config) { c.MinScore = v })
	}
	if flags.Changed("max-score") {
		v := maxScore
		overrides = append(overrides, func(c *model.Config) { c.MaxScore = v })
	}
	if flags.Changed("min-score") && flags.Changed("max-score") && minScore > maxScore {
		return nil, fmt.Errorf("--min-score must not exceed --max-score")
	}
	return overrides, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

var stdinIsTerminal = func() bool {
	return isTerminal(os.Stdin)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
