package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/pseudomuto/shardexec/pkg/parser"
	"github.com/pseudomuto/shardexec/pkg/route"
	"gopkg.in/yaml.v3"
)

// Plan kinds.
const (
	PlanQuery   = "query"
	PlanUpdate  = "update"
	PlanExecute = "execute"
	PlanBatch   = "batch"
)

type (
	// PlanUnit is one routed SQL fragment of a plan.
	PlanUnit struct {
		DataSource string `yaml:"data_source"`
		SQL        string `yaml:"sql"`
		Parameters []any  `yaml:"parameters,omitempty"`
	}

	// PlanStatement states the shape of the logical statement explicitly.
	PlanStatement struct {
		Type   route.StatementType `yaml:"type"`
		Tables []string            `yaml:"tables,omitempty"`
		Index  string              `yaml:"index,omitempty"`
	}

	// Plan is a pre-routed logical statement, as produced by a router.
	Plan struct {
		// Kind is one of query, update, execute or batch
		Kind string `yaml:"kind"`

		// SQL is the logical statement. It is parsed for the statement shape
		// when Statement is omitted.
		SQL string `yaml:"sql,omitempty"`

		// Statement overrides the parsed statement shape
		Statement *PlanStatement `yaml:"statement,omitempty"`

		// GeneratedKeys requests generated keys for update and execute plans
		GeneratedKeys bool `yaml:"generated_keys,omitempty"`

		// Units are the execution units of query, update and execute plans
		Units []PlanUnit `yaml:"units,omitempty"`

		// Batches holds the execution units of each logical addBatch call of
		// a batch plan
		Batches [][]PlanUnit `yaml:"batches,omitempty"`
	}
)

// LoadPlan parses and validates a plan.
//
// Example:
//
//	plan, err := config.LoadPlan(strings.NewReader(`
//	kind: update
//	sql: UPDATE t_order SET status = 'done'
//	units:
//	  - data_source: ds0
//	    sql: UPDATE t_order_0 SET status = 'done'
//	  - data_source: ds1
//	    sql: UPDATE t_order_1 SET status = 'done'
//	`))
func LoadPlan(r io.Reader) (*Plan, error) {
	var p Plan
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal plan")
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// LoadPlanFile loads a plan from the specified file path.
func LoadPlanFile(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadPlan(f)
}

// Validate checks that the plan carries the units its kind needs.
func (p *Plan) Validate() error {
	switch p.Kind {
	case PlanQuery, PlanUpdate, PlanExecute:
		if len(p.Units) == 0 {
			return errors.Errorf("%s plan requires units", p.Kind)
		}
		if err := validateUnits(p.Units); err != nil {
			return err
		}
	case PlanBatch:
		if len(p.Batches) == 0 {
			return errors.New("batch plan requires batches")
		}
		for i, batch := range p.Batches {
			if len(batch) == 0 {
				return errors.Errorf("batch %d has no units", i)
			}
			if err := validateUnits(batch); err != nil {
				return errors.Wrapf(err, "batch %d", i)
			}
		}
	default:
		return errors.Errorf("unknown plan kind %q", p.Kind)
	}

	if p.Statement == nil && p.SQL == "" {
		return errors.New("plan requires either sql or statement")
	}

	return nil
}

// StatementContext returns the statement shape of the plan, parsing SQL when
// the plan does not state it.
func (p *Plan) StatementContext() (*route.StatementContext, error) {
	if p.Statement != nil {
		return &route.StatementContext{
			Type:   p.Statement.Type,
			Tables: p.Statement.Tables,
			Index:  p.Statement.Index,
		}, nil
	}

	return parser.ParseShape(p.SQL)
}

// ExecutionUnits converts the plan units.
func (p *Plan) ExecutionUnits() []route.ExecutionUnit {
	return toExecutionUnits(p.Units)
}

// BatchExecutionUnits converts the units of every batch.
func (p *Plan) BatchExecutionUnits() [][]route.ExecutionUnit {
	result := make([][]route.ExecutionUnit, 0, len(p.Batches))
	for _, batch := range p.Batches {
		result = append(result, toExecutionUnits(batch))
	}

	return result
}

func validateUnits(units []PlanUnit) error {
	for i, u := range units {
		if u.DataSource == "" {
			return errors.Errorf("unit %d: data_source is required", i)
		}
		if u.SQL == "" {
			return errors.Errorf("unit %d: sql is required", i)
		}
	}

	return nil
}

func toExecutionUnits(units []PlanUnit) []route.ExecutionUnit {
	result := make([]route.ExecutionUnit, 0, len(units))
	for _, u := range units {
		result = append(result, route.NewExecutionUnit(u.DataSource, u.SQL, u.Parameters...))
	}

	return result
}
