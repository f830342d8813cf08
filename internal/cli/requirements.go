package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/integrations/pypi"
	"github.com/matzehuels/parcyl/pkg/manifest"
	"github.com/matzehuels/parcyl/pkg/metadata"
	"github.com/matzehuels/parcyl/pkg/requirement"
	"github.com/matzehuels/parcyl/pkg/site"
)

// watchDebounce coalesces the bursts of events editors produce on save.
const watchDebounce = 200 * time.Millisecond

type requirementsOptions struct {
	freeze  bool
	upgrade bool
	deep    bool

	config  string
	dir     string
	python  string
	index   string
	timeout time.Duration
	refresh bool
	noCache bool
	watch   bool
}

func (c *CLI) requirementsCommand() *cobra.Command {
	var opts requirementsOptions

	cmd := &cobra.Command{
		Use:   "requirements [group...]",
		Short: "Write requirements files from the configured groups",
		Long: `Write one requirements file per group of the [parcyl:requirements] section
into the requirements directory, plus requirements.txt (install and extras)
next to it. Arguments restrict output to the named groups; "requirements"
names the top-level file.

With --freeze versions are pinned to what is installed, with --upgrade to the
newest release allowed by the declared specifiers. --deep adds the runtime
dependencies of every requirement, annotated with what required them.`,
		Example: `  parcyl requirements
  parcyl requirements --freeze install test
  parcyl requirements -U -D --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.watch {
				return c.watchRequirements(cmd.Context(), cmd.OutOrStdout(), opts, args)
			}
			return c.runRequirements(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.freeze, "freeze", "F", false, "pin unconstrained requirements to the installed version")
	f.BoolVarP(&opts.upgrade, "upgrade", "U", false, "pin unconstrained requirements to the latest release")
	f.BoolVarP(&opts.deep, "deep", "D", false, "include the runtime dependencies of each requirement")
	f.StringVarP(&opts.config, "config", "c", "", "configuration file (default: setup.cfg or pyproject.toml)")
	f.StringVar(&opts.dir, "dir", defaultRequirementsDir, "requirements directory, relative to the configuration file")
	f.StringVar(&opts.python, "python", "python3", "interpreter whose site-packages define installed versions")
	f.StringVar(&opts.index, "index-url", pypi.DefaultBaseURL, "package index JSON API base URL")
	f.DurationVar(&opts.timeout, "timeout", manifest.DefaultFetchTimeout, "per-package metadata lookup timeout")
	f.BoolVar(&opts.refresh, "refresh", false, "bypass cached registry responses")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the registry response cache")
	f.BoolVarP(&opts.watch, "watch", "w", false, "rewrite the files whenever the configuration changes")
	cmd.MarkFlagsMutuallyExclusive("freeze", "upgrade")

	return cmd
}

// runRequirements loads the configuration once and writes the selected
// group files.
func (c *CLI) runRequirements(ctx context.Context, out io.Writer, opts requirementsOptions, only []string) error {
	prog := newProgress(c.Logger)

	cfg, err := loadConfig(opts.config)
	if err != nil {
		return err
	}
	reqs := cfg.Requirements
	sets := reqs.Groups()
	if err := checkGroups(sets, only); err != nil {
		return err
	}

	hooks := newLookupLog(c.Logger)
	if opts.freeze || opts.upgrade || opts.deep {
		svc, closeFn := c.newRegistry(ctx, opts, hooks)
		defer closeFn()
		requirement.Bind(svc, c.Logger, reqs.All()...)
	}

	groups := &manifest.Groups{Sets: sets, Pins: reqs.Pins}
	paths, err := groups.Write(ctx, resolveDir(cfg, opts.dir), manifest.GroupsOptions{
		WriteOptions: manifest.WriteOptions{
			Freeze:  opts.freeze,
			Upgrade: opts.upgrade,
			Deep:    opts.deep,
			Log:     c.Logger,
		},
		Only: only,
		Prefetch: manifest.PrefetchOptions{
			Timeout: opts.timeout,
			Hooks:   hooks,
		},
	})
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		printWarning(out, "No requirements configured in %s", cfg.Path)
		return nil
	}
	printSuccess(out, "Wrote %d requirements files", len(paths))
	for _, p := range paths {
		printFile(out, p)
	}
	if n := hooks.fetched.Load() + hooks.failed.Load(); n > 0 {
		printDetail(out, "%d lookups, %d failed, %d cached responses", n, hooks.failed.Load(), hooks.hits.Load())
	}
	prog.done(fmt.Sprintf("Wrote %d requirements files", len(paths)))
	return nil
}

// newRegistry wires the metadata service: installed versions from the
// interpreter's site-packages, releases from the package index.
func (c *CLI) newRegistry(ctx context.Context, opts requirementsOptions, hooks *lookupLog) (metadata.Service, func()) {
	cc := c.newCache(ctx, opts.noCache)
	client := pypi.NewClient(cc, cacheTTL).WithBaseURL(opts.index)
	client.WithHooks(nil, hooks)

	ix := site.Discover(ctx, opts.python, c.Logger)
	reg := metadata.NewRegistry(ix, client, c.Logger).WithRefresh(opts.refresh)
	return reg, func() { _ = cc.Close() }
}

// checkGroups rejects group arguments that name no configured group.
func checkGroups(sets map[string][]*requirement.Requirement, only []string) error {
	for _, name := range only {
		if name == manifest.TopLevel {
			continue
		}
		if _, ok := sets[name]; !ok {
			valid := append(slices.Sorted(maps.Keys(sets)), manifest.TopLevel)
			return errors.New(errors.ErrCodeInvalidInput, "unknown group %q (valid: %v)", name, valid)
		}
	}
	return nil
}

// watchRequirements writes the files, then rewrites them after every change
// to the configuration file until ctx is cancelled. Failed runs are logged
// and watching continues.
func (c *CLI) watchRequirements(ctx context.Context, out io.Writer, opts requirementsOptions, only []string) error {
	cfg, err := loadConfig(opts.config)
	if err != nil {
		return err
	}
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return err
	}
	opts.config = path

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	run := func() {
		if err := c.runRequirements(ctx, out, opts, only); err != nil {
			c.Logger.Error("requirements not written", "err", err)
		}
	}
	run()
	printInfo(out, "Watching %s", path)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce = time.After(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "err", err)
		case <-debounce:
			debounce = nil
			c.Logger.Debug("configuration changed", "path", path)
			run()
		}
	}
}
