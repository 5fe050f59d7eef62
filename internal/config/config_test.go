package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tabhero/internal/model"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), Resolve(cfg))
}

func TestLoadConfigEmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestResolveAppliesFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, `
enabled = false

[scoring]
method = "Fixed"
fixed-score = 42
min-score = 2
max-score = 50

[animation]
show = false
duration-ms = 800
style = "fade"
decoration = "*"

[store]
backend = "bolt"
path = "/tmp/x.bolt"

[log]
level = "debug"
`)
	fc, err := LoadConfig(path)
	require.NoError(t, err)
	cfg := Resolve(fc)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, model.MethodFixed, cfg.Method)
	assert.Equal(t, 42.0, cfg.FixedScore)
	assert.Equal(t, 2.0, cfg.MinScore)
	assert.Equal(t, 50.0, cfg.MaxScore)
	assert.Equal(t, DefaultBaseScorePerChar, cfg.BaseScorePerChar)
	assert.False(t, cfg.ShowAnimation)
	assert.Equal(t, 800*time.Millisecond, cfg.AnimationDuration)
	assert.Equal(t, model.AnimationFade, cfg.AnimationStyle)
	assert.Equal(t, "*", cfg.ScoreDecoration)
	assert.Equal(t, DefaultScoreColor, cfg.ScoreColor)
	assert.Equal(t, BackendBolt, cfg.StoreBackend)
	assert.Equal(t, "/tmp/x.bolt", cfg.StorePath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestResolveKeepsUnknownMethodAndDefaultsStyle(t *testing.T) {
	method := "weighted"
	style := "spin"
	cfg := Resolve(FileConfig{
		Scoring:   ScoringConfig{Method: &method},
		Animation: AnimationConfig{Style: &style},
	})
	assert.Equal(t, model.ScoreMethod("weighted"), cfg.Method)
	assert.Equal(t, model.AnimationFloating, cfg.AnimationStyle)
}

func TestFileSourceRereadsOnEveryCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	src := NewFileSource(path, nil)
	assert.Equal(t, model.MethodQuality, src.Current().Method)

	writeConfig(t, path, "[scoring]\nmethod = \"random\"\n")
	assert.Equal(t, model.MethodRandom, src.Current().Method)

	writeConfig(t, path, "[scoring]\nmethod = \"fixed\"\n")
	assert.Equal(t, model.MethodFixed, src.Current().Method)
}

func TestFileSourceKeepsLastGoodOnDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "[scoring]\nfixed-score = 7\n")
	src := NewFileSource(path, nil)
	require.Equal(t, 7.0, src.Current().FixedScore)

	writeConfig(t, path, "[scoring\nbroken")
	assert.Equal(t, 7.0, src.Current().FixedScore)
}

func TestFileSourceOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "[scoring]\nmax-score = 20\n")
	src := NewFileSource(path, nil, func(c *model.Config) { c.MaxScore = 99 })
	assert.Equal(t, 99.0, src.Current().MaxScore)
}

func TestWatchNotifiesOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "enabled = true\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, path, "enabled = false\n")

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected change notification")
	}
	cancel()
	require.NoError(t, <-done)
}
