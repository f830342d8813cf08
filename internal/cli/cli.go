// Package cli implements the parcyl command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/parcyl/pkg/buildinfo"
	"github.com/matzehuels/parcyl/pkg/cache"
	"github.com/matzehuels/parcyl/pkg/config"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "parcyl"

	// cacheTTL is how long registry responses are kept.
	cacheTTL = 24 * time.Hour

	// defaultRequirementsDir is where group files are written, relative to
	// the configuration file.
	defaultRequirementsDir = "requirements"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Parcyl generates requirements files and package metadata from setup.cfg",
		Long:         `Parcyl keeps a Python project's requirement groups and metadata in setup.cfg and writes pinned or unpinned requirements files, build attributes and a version info module from them.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.requirementsCommand())
	root.AddCommand(c.attrsCommand())
	root.AddCommand(c.infoFileCommand())
	root.AddCommand(c.initCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

// =============================================================================
// Shared Helpers
// =============================================================================

// newCache opens the cache selected by PARCYL_CACHE_URL. Failing to open it
// disables caching instead of failing the command.
func (c *CLI) newCache(ctx context.Context, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache("--no-cache")
	}
	cc, err := cache.Open(ctx, os.Getenv(cache.EnvURL))
	if err != nil {
		c.Logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache(err.Error())
	}
	return cc
}

// loadConfig loads path, or discovers the configuration of the working
// directory when path is empty.
func loadConfig(path string) (*config.Config, error) {
	switch {
	case path == "":
		return config.Discover(".")
	case filepath.Ext(path) == ".toml":
		return config.LoadPyProject(path)
	default:
		return config.Load(path)
	}
}

// resolveDir interprets a relative dir against the directory of the
// configuration file.
func resolveDir(cfg *config.Config, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(filepath.Dir(cfg.Path), dir)
}
