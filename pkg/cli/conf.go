package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mchmarny/raschctl/pkg/config"
	"github.com/urfave/cli/v3"
)

const forceFlagName = "force"

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or initialize the configuration",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: cmdShowConfig,
			},
			{
				Name:   "init",
				Usage:  "Write the default configuration to $HOME/.raschctl/config.yaml",
				Action: cmdInitConfig,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  forceFlagName,
						Usage: "Overwrite an existing config file",
					},
				},
			},
		},
	}
}

func cmdShowConfig(_ context.Context, cmd *cli.Command) error {
	cfg, err := applyFlags(cmd)
	if err != nil {
		return err
	}
	return output(cmd, cfg, cfg.Config)
}

func cmdInitConfig(_ context.Context, cmd *cli.Command) error {
	initLogging(cmd.Bool(debugFlagName), cmd.String(logFormatFlagName))
	dir := getHomeDir()
	path := config.FilePath(dir)

	if _, err := os.Stat(path); err == nil && !cmd.Bool(forceFlagName) {
		return fmt.Errorf("config already exists at %s, use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := config.Save(dir, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "wrote %s\n", path)
	return nil
}
