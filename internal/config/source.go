package config

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tabhero/internal/model"
)

// Source yields the configuration in effect right now.
type Source interface {
	Current() model.Config
}

// Override adjusts a resolved configuration, typically from CLI flags.
type Override func(*model.Config)

// FileSource re-reads the TOML file on every Current call so edits apply
// without restarting. A file that fails to decode keeps the last good snapshot.
type FileSource struct {
	path      string
	overrides []Override
	logger    *log.Logger

	mu       sync.Mutex
	lastGood model.Config
}

// NewFileSource builds a FileSource for path.
func NewFileSource(path string, logger *log.Logger, overrides ...Override) *FileSource {
	s := &FileSource{
		path:      path,
		overrides: overrides,
		logger:    logger,
	}
	s.lastGood = s.apply(Defaults())
	return s
}

// Path returns the watched config file.
func (s *FileSource) Path() string {
	return s.path
}

// Current implements Source.
func (s *FileSource) Current() model.Config {
	fc, err := LoadConfig(s.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("keeping previous config", "path", s.path, "err", err)
		}
		return s.lastGood
	}
	s.lastGood = s.apply(Resolve(fc))
	return s.lastGood
}

func (s *FileSource) apply(cfg model.Config) model.Config {
	for _, o := range s.overrides {
		o(&cfg)
	}
	return cfg
}

type staticSource struct {
	cfg model.Config
}

// Static returns a Source that always yields cfg.
func Static(cfg model.Config) Source {
	return staticSource{cfg: cfg}
}

func (s staticSource) Current() model.Config {
	return s.cfg
}

// Func adapts a function to a Source.
type Func func() model.Config

// Current implements Source.
func (f Func) Current() model.Config {
	return f()
}
