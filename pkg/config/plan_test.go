package config_test

import (
	"strings"
	"testing"

	. "github.com/pseudomuto/shardexec/pkg/config"
	"github.com/pseudomuto/shardexec/pkg/route"
	"github.com/stretchr/testify/require"
)

func TestLoadPlanFile(t *testing.T) {
	t.Run("update plan", func(t *testing.T) {
		plan, err := LoadPlanFile("testdata/update_plan.yaml")
		require.NoError(t, err)
		require.Equal(t, PlanUpdate, plan.Kind)

		units := plan.ExecutionUnits()
		require.Equal(t, []route.ExecutionUnit{
			route.NewExecutionUnit("ds0", "UPDATE t_order_0 SET status = ? WHERE user_id = ?", "done", 10),
			route.NewExecutionUnit("ds1", "UPDATE t_order_1 SET status = ? WHERE user_id = ?", "done", 11),
		}, units)

		sc, err := plan.StatementContext()
		require.NoError(t, err)
		require.Equal(t, route.Update, sc.Type)
		require.Equal(t, []string{"t_order"}, sc.Tables)
	})

	t.Run("batch plan", func(t *testing.T) {
		plan, err := LoadPlanFile("testdata/batch_plan.yaml")
		require.NoError(t, err)
		require.Equal(t, PlanBatch, plan.Kind)

		batches := plan.BatchExecutionUnits()
		require.Len(t, batches, 2)
		require.Equal(t, "ds1", batches[1][0].DataSource)
		require.Equal(t, []any{2, 11}, batches[1][0].SQLUnit.Parameters)

		sc, err := plan.StatementContext()
		require.NoError(t, err)
		require.Equal(t, &route.StatementContext{Type: route.Insert, Tables: []string{"t_order"}}, sc)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPlanFile("testdata/nope.yaml")
		require.ErrorContains(t, err, "failed to open file")
	})
}

func TestLoadPlan_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  string
	}{
		{name: "invalid yaml", yaml: "kind: [", err: "failed to unmarshal plan"},
		{name: "unknown kind", yaml: "kind: merge\nsql: SELECT 1\n", err: `unknown plan kind "merge"`},
		{name: "no units", yaml: "kind: query\nsql: SELECT 1\n", err: "query plan requires units"},
		{name: "no batches", yaml: "kind: batch\nsql: INSERT INTO t VALUES (?)\n", err: "batch plan requires batches"},
		{
			name: "empty batch",
			yaml: "kind: batch\nsql: INSERT INTO t VALUES (?)\nbatches:\n  - []\n",
			err:  "batch 0 has no units",
		},
		{
			name: "unit without data source",
			yaml: "kind: update\nsql: DELETE FROM t\nunits:\n  - sql: DELETE FROM t_0\n",
			err:  "unit 0: data_source is required",
		},
		{
			name: "unit without sql",
			yaml: "kind: update\nsql: DELETE FROM t\nunits:\n  - data_source: ds0\n",
			err:  "unit 0: sql is required",
		},
		{
			name: "no statement",
			yaml: "kind: update\nunits:\n  - {data_source: ds0, sql: DELETE FROM t_0}\n",
			err:  "plan requires either sql or statement",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := LoadPlan(strings.NewReader(tt.yaml))
			require.Nil(t, plan)
			require.ErrorContains(t, err, tt.err)
		})
	}
}
