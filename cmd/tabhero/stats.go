package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tabhero/internal/config"
	"github.com/verte-zerg/tabhero/internal/logging"
	"github.com/verte-zerg/tabhero/internal/model"
	"github.com/verte-zerg/tabhero/internal/scoring"
	"github.com/verte-zerg/tabhero/internal/stats"
	"github.com/verte-zerg/tabhero/internal/statsui"
)

const defaultStatsLimit = 200

var (
	statsLimit   int
	statsPlain   bool
	scoreExplain bool
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsLimit, "limit", defaultStatsLimit, "number of recent completions to include")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print stats instead of opening the dashboard")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if statsLimit <= 0 {
		return fmt.Errorf("--limit must be > 0")
	}
	interactive := !statsPlain && isTerminal(os.Stdout)
	a, err := openApp(cmd, appOptions{fileLog: interactive})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := stats.BuildReport(cmd.Context(), a.store, statsLimit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	session := lastSession(report.Sessions)
	allTime := a.tracker.AllTimeStats()

	if interactive {
		m := statsui.NewModel(session, allTime, a.store)
		program := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}
	return writeStats(cmd.OutOrStdout(), session, allTime, report)
}

// lastSession describes the most recent recorded session.
func lastSession(sessions []model.SessionSummary) model.SessionStats {
	if len(sessions) == 0 {
		return model.SessionStats{Rank: stats.BaseRank()}
	}
	s := sessions[len(sessions)-1]
	return model.SessionStats{
		Score:     s.Score,
		Tabs:      s.Tabs,
		StartTime: s.StartedAt,
		TPM:       stats.SessionTPM(s),
		Rank:      stats.RankFor(s.Score),
	}
}

func writeStats(w io.Writer, session model.SessionStats, allTime model.AllTimeStats, report stats.Report) error {
	if err := stats.RenderSummary(w, session, allTime); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderSessionTable(w, report.Sessions); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	scores := stats.ScoreSeries(report.Recent)
	if len(scores) < 2 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return stats.PlotSeries(w, stats.Series{Name: "Score per completion", Values: scores, Color: "32"}, 0, 0)
}

func newRanksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ranks",
		Short: "List ranks and their score thresholds",
		Args:  cobra.NoArgs,
		RunE:  runRanksCmd,
	}
}

func runRanksCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	highest := a.tracker.AllTimeStats().HighestRank
	if err := stats.RenderRankTable(cmd.OutOrStdout(), "", highest); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [TEXT...]",
		Short: "Score a completion text (reads stdin without arguments)",
		RunE:  runScoreCmd,
	}
	cmd.Flags().BoolVar(&scoreExplain, "explain", false, "show how the score was computed")
	return cmd
}

func runScoreCmd(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = strings.TrimSuffix(string(data), "\n")
	}

	cfgPath := config.DefaultConfigPath()
	if _, err := config.LoadConfig(cfgPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrides, err := flagOverrides(cmd)
	if err != nil {
		return err
	}
	src := config.NewFileSource(cfgPath, logging.New(cmd.ErrOrStderr(), logLevel), overrides...)
	cfg := src.Current()
	result := scoring.New(src).Calculate(text)

	out := cmd.OutOrStdout()
	if !scoreExplain {
		_, err := fmt.Fprintln(out, result.Score)
		return err
	}
	return explainScore(out, text, cfg, result)
}

// explainScore prints the quality breakdown for text next to the final score.
func explainScore(w io.Writer, text string, cfg model.Config, result model.ScoreResult) error {
	lines := []string{
		fmt.Sprintf("Method: %s", result.Method),
		fmt.Sprintf("Chars: %d", utf8.RuneCountInString(text)),
		fmt.Sprintf("Lines: %d", scoring.LineCount(text)),
	}
	if result.Method == model.MethodQuality {
		lines = append(lines,
			fmt.Sprintf("Base per char: %.2f", cfg.BaseScorePerChar),
			fmt.Sprintf("Pattern bonus: %.1f", scoring.PatternBonus(text)),
			fmt.Sprintf("Raw score: %.2f", scoring.QualityScore(text, cfg)),
		)
	}
	lines = append(lines,
		fmt.Sprintf("Bounds: %.0f-%.0f", cfg.MinScore, cfg.MaxScore),
		fmt.Sprintf("Score: %d", result.Score),
	)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
