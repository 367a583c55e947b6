package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/config"
	"github.com/pseudomuto/shardexec/pkg/consts"
	"github.com/pseudomuto/shardexec/pkg/executor"
	"github.com/pseudomuto/shardexec/pkg/group"
	"github.com/pseudomuto/shardexec/pkg/route"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type groupsParams struct {
	fx.In

	Config *config.Config
}

// groupsCmd creates the groups command, which prints how the units of a plan
// would be distributed over connections.
//
// Units are partitioned per data source. When a data source holds more units
// than the connection budget allows they are chunked onto shared connections
// (CONNECTION_STRICTLY), otherwise every unit gets its own connection
// (MEMORY_STRICTLY). For batch plans the entries addressed to the same data
// source and SQL are coalesced first, exactly as exec would.
//
// Example:
//
//	shardexec groups --plan update.yaml --max-connections 2
func groupsCmd(p groupsParams) *cli.Command {
	return &cli.Command{
		Name:  "groups",
		Usage: "Show how a plan is grouped onto connections",
		Description: `Print the connection plan of each data source without connecting to
anything. The connection budget defaults to max_connections_size_per_query
from shardexec.yaml when present.`,
		Flags: []cli.Flag{
			planFlag(),
			&cli.IntFlag{
				Name:    "max-connections",
				Aliases: []string{"m"},
				Usage:   "Connection budget per data source (overrides the config)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			plan, err := config.LoadPlanFile(cmd.String("plan"))
			if err != nil {
				return err
			}

			budget := cmd.Int("max-connections")
			if budget == 0 {
				budget = maxConnectionsSizePerQuery(p.Config)
			}

			if budget < 1 {
				return errors.New("max-connections must be at least 1")
			}

			return writeGroups(cmd.Writer, plan, budget)
		},
	}
}

func writeGroups(w io.Writer, plan *config.Plan, budget int) error {
	units := plan.ExecutionUnits()
	describe := func(u route.ExecutionUnit) string {
		if len(u.SQLUnit.Parameters) == 0 {
			return u.SQLUnit.SQL
		}

		return fmt.Sprintf("%s %v", u.SQLUnit.SQL, u.SQLUnit.Parameters)
	}

	if plan.Kind == config.PlanBatch {
		batch := executor.NewBatchExecutor(executor.Config{})
		for _, entry := range plan.BatchExecutionUnits() {
			batch.AddBatchForExecutionUnits(entry)
		}

		entries := make(map[route.Target]int)
		for _, bu := range batch.BatchExecutionUnits() {
			entries[bu.Unit.Target()] = len(bu.ParameterSets)
		}

		units = batch.ExecutionUnits()
		describe = func(u route.ExecutionUnit) string {
			return fmt.Sprintf("%s (%d batch entries)", u.SQLUnit.SQL, entries[u.Target()])
		}
	}

	if _, err := fmt.Fprintf(w, "max connections per data source: %d\n", budget); err != nil {
		return errors.Wrap(err, "failed to write groups")
	}

	for _, p := range group.Plan(units, budget) {
		fmt.Fprintf(w, "\n%s: %s, %d connection(s)\n", p.DataSource, p.Mode, len(p.Chunks))
		for i, chunk := range p.Chunks {
			fmt.Fprintf(w, "  connection %d:\n", i+1)
			for _, u := range chunk {
				fmt.Fprintf(w, "    %s\n", describe(u))
			}
		}
	}

	return nil
}

func planFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "plan",
		Aliases:  []string{"p"},
		Usage:    "Path to the plan file",
		Required: true,
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}
}

func maxConnectionsSizePerQuery(cfg *config.Config) int {
	if cfg == nil {
		return consts.DefaultMaxConnectionsSizePerQuery
	}

	return cfg.Props.MaxConnectionsSizePerQuery
}
