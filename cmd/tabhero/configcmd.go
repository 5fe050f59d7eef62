package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/tabhero/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := writeConfigTemplate(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeConfigTemplate creates the config file unless it already exists.
func writeConfigTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tabhero configuration
# Uncomment a value to enable it. CLI flags override config values.
# Scoring and animation changes apply while tabhero is running.

# enabled = true                  # Score accepted completions

[scoring]
# method = %q                # quality, fixed or random
# fixed-score = %.1f              # Points per completion (fixed)
# base-score-per-char = %.1f       # Points per character (quality)
# min-score = %.1f                 # Lowest score a completion can earn
# max-score = %.1f              # Highest score a completion can earn
# random-min-score = %.1f          # Lower bound (random)
# random-max-score = %.1f        # Upper bound (random)

[animation]
# show = true                     # Show score popups
# duration-ms = %d              # Popup lifetime
# style = %q              # floating or fade
# color = %q               # Popup colour
# decoration = %q                 # Text shown before the score

[store]
# backend = %q               # sqlite or bolt
# path = ""                       # Database path (default: XDG data dir)

[log]
# level = %q                    # debug, info, warn or error
`,
		config.DefaultMethod,
		config.DefaultFixedScore,
		config.DefaultBaseScorePerChar,
		config.DefaultMinScore,
		config.DefaultMaxScore,
		config.DefaultRandomMinScore,
		config.DefaultRandomMaxScore,
		config.DefaultAnimationDuration.Milliseconds(),
		config.DefaultAnimationStyle,
		config.DefaultScoreColor,
		config.DefaultScoreDecoration,
		config.BackendSQLite,
		config.DefaultLogLevel,
	)
}
