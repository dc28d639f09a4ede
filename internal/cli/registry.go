package cli

import (
	"github.com/roach88/fixrun/internal/checker"
	"github.com/roach88/fixrun/internal/checker/cuecheck"
	"github.com/roach88/fixrun/internal/checker/sasstrue"
	"github.com/roach88/fixrun/internal/checker/yamlcheck"
	"github.com/roach88/fixrun/internal/config"
)

// DefaultRegistry registers the built-in checkers. compiler replaces the
// sass binary named in cfg when set.
//
// Fixtures under __tests__ have no .test or .spec infix, so the bare
// extensions are claimed as well. Which files are fixtures is decided by
// the locator patterns.
func DefaultRegistry(cfg *config.Config, compiler sasstrue.Compiler) (*checker.Registry, error) {
	if compiler == nil {
		compiler = sasstrue.ExecCompiler{Binary: cfg.Sass.Binary}
	}

	reg := checker.NewRegistry()
	if err := reg.Register(sasstrue.New(compiler, cfg.Sass.LoadPaths...), withExtensions(sasstrue.Suffixes, ".scss")...); err != nil {
		return nil, err
	}
	if err := reg.Register(yamlcheck.New(), withExtensions(yamlcheck.Suffixes, ".yaml", ".yml")...); err != nil {
		return nil, err
	}
	if err := reg.Register(cuecheck.New(), withExtensions(cuecheck.Suffixes, ".cue")...); err != nil {
		return nil, err
	}
	return reg, nil
}

func withExtensions(suffixes []string, exts ...string) []string {
	out := make([]string, 0, len(suffixes)+len(exts))
	out = append(out, suffixes...)
	return append(out, exts...)
}
