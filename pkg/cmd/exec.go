package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/config"
	"github.com/pseudomuto/shardexec/pkg/datasource"
	"github.com/pseudomuto/shardexec/pkg/executor"
	"github.com/pseudomuto/shardexec/pkg/metadata"
	"github.com/pseudomuto/shardexec/pkg/route"
	"github.com/pseudomuto/shardexec/pkg/rule"
	"github.com/pseudomuto/shardexec/pkg/sharding"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
	"go.uber.org/multierr"
)

type execParams struct {
	fx.In

	Config  *config.Config
	Manager *datasource.Manager
	Loader  metadata.TableLoader
	Logger  *slog.Logger `optional:"true"`
}

// execCmd creates the exec command, which runs a plan against the configured
// data sources and prints the merged result.
//
// Query plans print the rows of every physical result, update plans the
// logical update count (and generated keys with generated_keys: true),
// execute plans any result sets, and batch plans one count per logical batch
// entry.
//
// Example:
//
//	shardexec exec --plan batch.yaml
func execCmd(p execParams) *cli.Command {
	return &cli.Command{
		Name:  "exec",
		Usage: "Execute a plan",
		Description: `Execute a routed plan against the data sources in shardexec.yaml.

Units are grouped onto connections using max_connections_size_per_query and
run concurrently, bounded by executor_size. With exception_thrown the first
failure aborts the plan; otherwise every unit runs and failures are reported
together after the partial result.`,
		Before: requireConfig(p.Config),
		Flags:  []cli.Flag{planFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			plan, err := config.LoadPlanFile(cmd.String("plan"))
			if err != nil {
				return err
			}

			sc, err := plan.StatementContext()
			if err != nil {
				return err
			}

			stmt := sharding.NewPreparedStatement(shardingConfig(p))
			err = execPlan(ctx, cmd.Writer, stmt, plan, sc, p.Config.Props.ExceptionThrown)

			return multierr.Append(err, stmt.Close())
		},
	}
}

func shardingConfig(p execParams) sharding.Config {
	return sharding.Config{
		Provider:                   p.Manager,
		MaxConnectionsSizePerQuery: p.Config.Props.MaxConnectionsSizePerQuery,
		ExceptionThrown:            p.Config.Props.ExceptionThrown,
		Executor: executor.Config{
			Pool:       executor.NewPool(p.Config.Props.ExecutorSize, p.Logger),
			Classifier: rule.New(rule.Config{BroadcastTables: p.Config.BroadcastTables}),
			Refresher: metadata.NewRefresher(metadata.RefresherConfig{
				MetaData: metadata.NewSchemaMetaData(),
				Loader:   p.Loader,
				Logger:   p.Logger,
			}),
			Logger: p.Logger,
		},
	}
}

func execPlan(ctx context.Context, w io.Writer, stmt *sharding.PreparedStatement, plan *config.Plan, sc *route.StatementContext, exceptionThrown bool) error {
	ec := &route.ExecutionContext{Statement: sc, Units: plan.ExecutionUnits()}

	switch plan.Kind {
	case config.PlanQuery:
		results, err := stmt.ExecuteQuery(ctx, ec)
		if aborted(err, exceptionThrown) {
			return err
		}

		return multierr.Append(err, writeResults(w, results))
	case config.PlanUpdate:
		var (
			n   int
			err error
		)

		if plan.GeneratedKeys {
			n, err = stmt.ExecuteUpdateWithGeneratedKeys(ctx, ec, true)
		} else {
			n, err = stmt.ExecuteUpdate(ctx, ec)
		}

		if aborted(err, exceptionThrown) {
			return err
		}

		fmt.Fprintf(w, "affected rows: %d\n", n)
		if plan.GeneratedKeys {
			fmt.Fprintf(w, "generated keys: %v\n", stmt.GeneratedKeys())
		}

		return err
	case config.PlanExecute:
		ok, err := stmt.Execute(ctx, ec)
		if aborted(err, exceptionThrown) {
			return err
		}

		if !ok {
			fmt.Fprintln(w, "no result set")
			return err
		}

		return multierr.Append(err, writeResults(w, stmt.ResultSets()))
	case config.PlanBatch:
		for _, units := range plan.BatchExecutionUnits() {
			if err := stmt.AddBatch(units); err != nil {
				return err
			}
		}

		counts, err := stmt.ExecuteBatch(ctx, sc)
		if aborted(err, exceptionThrown) {
			return err
		}

		fmt.Fprintf(w, "affected rows: %v\n", counts)
		return err
	default:
		return errors.Errorf("unknown plan kind %q", plan.Kind)
	}
}

// aborted reports whether err left no result worth printing. A failed
// metadata refresh still comes with a valid result.
func aborted(err error, exceptionThrown bool) bool {
	if err == nil || !exceptionThrown {
		return false
	}

	var refreshErr *executor.MetadataRefreshError
	return !errors.As(err, &refreshErr)
}

// writeResults prints the header of the first result followed by the rows of
// every result, tab separated. Results of failed units are skipped.
func writeResults(w io.Writer, results []executor.QueryResult) error {
	header := false
	for _, r := range results {
		if r == nil {
			continue
		}

		cols, err := r.Columns()
		if err != nil {
			return errors.Wrap(err, "failed to read columns")
		}

		if !header {
			fmt.Fprintln(w, strings.Join(cols, "\t"))
			header = true
		}

		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}

		for r.Next() {
			if err := r.Scan(dest...); err != nil {
				return errors.Wrap(err, "failed to scan row")
			}

			fields := make([]string, len(values))
			for i, v := range values {
				fields[i] = formatValue(v)
			}
			fmt.Fprintln(w, strings.Join(fields, "\t"))
		}

		if err := r.Err(); err != nil {
			return errors.Wrap(err, "failed to read rows")
		}
	}

	return nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
