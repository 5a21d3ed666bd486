// Package plan turns window queries into window stages and runs them: it resolves columns against the input
// schema, compiles the window function, partitions and sorts the input and runs the window loop on every partition.
package plan

import (
	"fmt"
	"strings"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/winagg/aggfuncs"
	"github.com/squareup/winagg/command/parser"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/conf"
	"github.com/squareup/winagg/engine"
	"github.com/squareup/winagg/errors"
	"github.com/squareup/winagg/failinject"
	"github.com/squareup/winagg/kernel"
	"github.com/squareup/winagg/kernel/builtin"
	"github.com/squareup/winagg/metrics"
)

// Compiler is a kernel module that can compile window functions.
type Compiler interface {
	kernel.Kernel
	Compile(def builtin.FunctionDef) (*builtin.Function, error)
	Drop(functionID string)
}

// Planner owns what the stages it plans share: the kernel module, the partitioning engine and the worker pool
// partitions run on.
type Planner struct {
	config   *conf.Config
	compiler Compiler
	engine   engine.Engine
	workers  *ants.Pool
	metrics  *stageMetrics
	injector failinject.Injector
}

// NewPlanner loads the configured kernel module and creates the engine and workers. metricsFactory and injector
// may be nil.
func NewPlanner(cnf *conf.Config, metricsFactory metrics.Factory, injector failinject.Injector) (*Planner, error) {
	if err := cnf.Validate(); err != nil {
		return nil, err
	}
	k, err := kernel.Load(cnf.KernelModule)
	if err != nil {
		return nil, err
	}
	compiler, ok := k.(Compiler)
	if !ok {
		return nil, errors.NewInvalidConfigurationError(
			fmt.Sprintf("kernel module %s cannot compile window functions", cnf.KernelModule))
	}
	if metricsFactory == nil {
		metricsFactory = metrics.NewNoopFactory()
	}
	m, err := newStageMetrics(metricsFactory)
	if err != nil {
		return nil, err
	}
	eng, err := engine.NewEngine(cnf)
	if err != nil {
		return nil, err
	}
	workers, err := ants.NewPool(cnf.Parallelism, ants.WithPanicHandler(func(v interface{}) {
		log.Errorf("window partition worker panicked: %v", v)
	}))
	if err != nil {
		_ = eng.Close()
		return nil, errors.WithStack(err)
	}
	if injector == nil {
		injector = failinject.NewDummyInjector()
	}
	return &Planner{
		config:   cnf,
		compiler: compiler,
		engine:   eng,
		workers:  workers,
		metrics:  m,
		injector: injector,
	}, nil
}

// Plan builds the stage for a parsed query over inputColumns.
func (p *Planner) Plan(query *parser.WindowQuery, inputColumns []common.ColumnInfo) (*Stage, error) {
	def, err := StageDefFromQuery(query)
	if err != nil {
		return nil, err
	}
	return p.NewStage(def, inputColumns)
}

// ExecuteQuery parses, plans and runs sql over ds.
func (p *Planner) ExecuteQuery(sql string, ds *engine.Dataset) (*engine.Dataset, error) {
	query, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	stage, err := p.Plan(query, ds.Columns)
	if err != nil {
		return nil, err
	}
	defer stage.Close()
	return stage.Execute(ds)
}

func (p *Planner) Close() error {
	p.workers.Release()
	return p.engine.Close()
}

// StageDefFromQuery checks the parts of a query that do not depend on the input schema and converts it.
func StageDefFromQuery(query *parser.WindowQuery) (StageDef, error) {
	w := query.Window
	def := StageDef{}
	for _, item := range query.Items {
		if item.Aggregate == nil {
			def.Output = append(def.Output, OutputColumn{Name: item.Name(), Column: item.Column.String()})
			continue
		}
		agg := item.Aggregate
		if agg.Window != w.Name {
			return StageDef{}, errors.NewInvalidStatementError(fmt.Sprintf("unknown window %s in %s", agg.Window, agg))
		}
		funcType, ok := aggfuncs.ParseAggFunctionType(agg.Func.String())
		if !ok {
			return StageDef{}, errors.NewInvalidStatementError(fmt.Sprintf("unknown aggregate function %s",
				strings.ToUpper(agg.Func.String())))
		}
		def.Output = append(def.Output, OutputColumn{
			Name:      item.Name(),
			Column:    agg.Arg.String(),
			Aggregate: true,
			FuncType:  funcType,
		})
	}
	for _, col := range w.PartitionBy {
		def.GroupBy = append(def.GroupBy, col.Name.String())
	}
	for _, o := range w.OrderBy {
		def.OrderBy = append(def.OrderBy, OrderColumn{Column: o.Column.String(), Descending: o.Descending()})
	}
	frame, err := frameFromDef(w.Frame)
	if err != nil {
		return StageDef{}, err
	}
	def.Frame = frame
	return def, nil
}

func frameFromDef(f *parser.FrameDef) (kernel.Frame, error) {
	if f == nil {
		return kernel.Frame{Type: kernel.FrameRange, StartOffset: kernel.UnboundedPreceding}, nil
	}
	frame := kernel.Frame{Type: kernel.FrameRange}
	if f.Rows() {
		frame.Type = kernel.FrameRows
	}
	start := f.Start
	switch {
	case start.Current:
		frame.StartOffset = 0
	case start.Unbounded:
		if start.Following() {
			return kernel.Frame{}, errors.NewInvalidFrameError("frame cannot start at UNBOUNDED FOLLOWING")
		}
		frame.StartOffset = kernel.UnboundedPreceding
	default:
		offset := *start.Offset
		if offset < 0 {
			return kernel.Frame{}, errors.NewInvalidFrameError(fmt.Sprintf("frame offset %d must not be negative", offset))
		}
		if start.Following() {
			if offset > 0 {
				return kernel.Frame{}, errors.NewInvalidFrameError("frame must start at or before the current row")
			}
			offset = 0
		}
		frame.StartOffset = -offset
	}
	return frame, nil
}
