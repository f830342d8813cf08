package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/parcyl/pkg/setup"
)

func (c *CLI) attrsCommand() *cobra.Command {
	var (
		cfgPath   string
		format    string
		status    bool
		namesOnly bool
	)

	cmd := &cobra.Command{
		Use:   "attrs",
		Short: "Print the package build attributes",
		Long: `Print the attributes a package build receives: project metadata from the
[parcyl] section and the install, test, extras and setup requirement lists.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			attrs, err := setup.Attrs(cfg, nil, setup.Options{
				NamesOnly:         namesOnly,
				StatusClassifiers: status,
			})
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("attributes built", "config", cfg.Path, "keys", len(attrs))
			return setup.Encode(cmd.OutOrStdout(), attrs, format)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "configuration file (default: setup.cfg or pyproject.toml)")
	f.StringVarP(&format, "format", "f", setup.FormatJSON, "output format: json or yaml")
	f.BoolVar(&status, "status-classifiers", true, "append the development status classifier of the version")
	f.BoolVar(&namesOnly, "names-only", false, "list requirements without version constraints")

	return cmd
}

func (c *CLI) infoFileCommand() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "info-file <path>",
		Short: "Write a Python module with the project's version info",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			if err := setup.WriteInfoFile(args[0], cfg.Metadata); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Wrote %s", StyleHighlight.Render(args[0]))
			printDetail(cmd.OutOrStdout(), "%s %s", cfg.Metadata.Name, cfg.Metadata.Version)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "configuration file (default: setup.cfg or pyproject.toml)")
	return cmd
}
