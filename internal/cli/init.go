package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/parcyl/pkg/config"
	"github.com/matzehuels/parcyl/pkg/errors"
)

const setupCfgSkeleton = `[%s]
name = %s
version = 0.1.0a0
author =
author_email =
url =
license =
description =
classifiers =
keywords =
release_name =
github_url =
years = %d

[%s]
install =
test =
dev =
setup =
pins =
`

func (c *CLI) initCommand() *cobra.Command {
	var (
		dir   string
		name  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a skeleton setup.cfg and requirements directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(abs)
			}
			if err := errors.ValidatePackageName(name); err != nil {
				return err
			}

			path := filepath.Join(abs, config.SetupCfg)
			if _, err := os.Stat(path); err == nil && !force {
				return errors.New(errors.ErrCodeInvalidInput, "%s already exists (use --force to overwrite)", path)
			}
			content := fmt.Sprintf(setupCfgSkeleton, config.MetadataSection, name, time.Now().Year(), config.RequirementsSection)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return err
			}
			reqDir := filepath.Join(abs, defaultRequirementsDir)
			if err := os.MkdirAll(reqDir, 0o755); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSuccess(out, "Initialized %s", StyleHighlight.Render(name))
			printFile(out, path)
			printFile(out, reqDir)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dir, "dir", ".", "project directory")
	f.StringVar(&name, "name", "", "project name (default: directory name)")
	f.BoolVar(&force, "force", false, "overwrite an existing setup.cfg")

	return cmd
}
