package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/raschctl/pkg/data"
	"github.com/urfave/cli/v3"
)

const (
	runLimitFlagName = "limit"
	runIDFlagName    = "id"
)

func runIDFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     runIDFlagName,
		Usage:    "Run ID",
		Required: true,
	}
}

func runsCmd() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Manage saved analysis runs",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List saved runs, newest first",
				Action: cmdListRuns,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  runLimitFlagName,
						Usage: "Limits number of runs returned",
						Value: data.RunListLimitDefault,
					},
				},
			},
			{
				Name:   "show",
				Usage:  "Print a saved run with its full result",
				Action: cmdShowRun,
				Flags:  []cli.Flag{runIDFlag()},
			},
			{
				Name:   "delete",
				Usage:  "Delete a saved run",
				Action: cmdDeleteRun,
				Flags:  []cli.Flag{runIDFlag()},
			},
		},
	}
}

func openRunStore(ctx context.Context, cmd *cli.Command) (*appConfig, *data.Store, error) {
	cfg, err := applyFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := cfg.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func cmdListRuns(ctx context.Context, cmd *cli.Command) error {
	cfg, store, err := openRunStore(ctx, cmd)
	if err != nil {
		return err
	}
	list, err := store.ListRuns(ctx, cmd.Int(runLimitFlagName))
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	return output(cmd, cfg, list)
}

func cmdShowRun(ctx context.Context, cmd *cli.Command) error {
	cfg, store, err := openRunStore(ctx, cmd)
	if err != nil {
		return err
	}
	run, err := store.GetRun(ctx, cmd.String(runIDFlagName))
	if err != nil {
		return err
	}
	return output(cmd, cfg, run)
}

func cmdDeleteRun(ctx context.Context, cmd *cli.Command) error {
	_, store, err := openRunStore(ctx, cmd)
	if err != nil {
		return err
	}
	id := cmd.String(runIDFlagName)
	if err := store.DeleteRun(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "deleted run %s\n", id)
	return nil
}
