package main

import (
	"encoding/json"
	"io"
	"io/ioutil"

	"github.com/alecthomas/kong"
	konghcl "github.com/alecthomas/kong-hcl/v2"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/winagg/command/parser"
	"github.com/squareup/winagg/conf"
	"github.com/squareup/winagg/errors"
	wlog "github.com/squareup/winagg/log"
	"github.com/squareup/winagg/metrics"
	"github.com/squareup/winagg/metrics/prometheus"
	"github.com/squareup/winagg/plan"
	"muzzammil.xyz/jsonc"
)

type arguments struct {
	Config kong.ConfigFlag `help:"Path to an HCL file with flag defaults" type:"existingfile"`
	Conf   string          `help:"Path to a JSONC file with the stage configuration" type:"existingfile"`
	Log    wlog.Config     `help:"Configuration for the logger" embed:"" prefix:"log-"`
	Run    runCommand      `cmd:"" help:"Run a window query over a CSV file"`
}

type runCommand struct {
	Schema   string `help:"JSONC file describing the input columns" type:"existingfile" required:""`
	Input    string `help:"CSV file with the input rows, '-' reads stdin" default:"-"`
	Query    string `help:"Window query to run" required:""`
	Output   string `help:"CSV file to write the results to, '-' writes stdout" default:"-"`
	NoHeader bool   `help:"The input CSV has no header row"`
}

type runner struct {
	stdout io.Writer
	stdin  io.Reader
}

func (r *runner) run(args []string) error {
	cli := arguments{}
	p, err := kong.New(&cli, kong.Name("winagg"), kong.Configuration(konghcl.Loader))
	if err != nil {
		return errors.WithStack(err)
	}
	ctx, err := p.Parse(args)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := cli.Log.Configure(); err != nil {
		return err
	}
	cnf, err := loadConfig(cli.Conf)
	if err != nil {
		return err
	}
	switch ctx.Command() {
	case "run":
		return r.runQuery(cnf, &cli.Run)
	default:
		return errors.Errorf("unexpected command %s", ctx.Command())
	}
}

func (r *runner) runQuery(cnf *conf.Config, cmd *runCommand) error {
	schema, err := loadSchema(cmd.Schema)
	if err != nil {
		return err
	}
	query, err := parser.Parse(cmd.Query)
	if err != nil {
		return err
	}
	if err := schema.checkTable(query.From.String()); err != nil {
		return err
	}

	var metricsFactory metrics.Factory = metrics.NewNoopFactory()
	if cnf.EnableMetrics {
		metricsFactory = prometheus.NewFactory(*cnf)
		if err := metricsFactory.Start(); err != nil {
			return err
		}
		defer func() {
			if err := metricsFactory.Stop(); err != nil {
				log.Warnf("failed to stop metrics server: %v", err)
			}
		}()
	}
	planner, err := plan.NewPlanner(cnf, metricsFactory, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := planner.Close(); err != nil {
			log.Warnf("failed to close planner: %v", err)
		}
	}()
	stage, err := planner.Plan(query, schema.Columns)
	if err != nil {
		return err
	}
	defer stage.Close()

	in, closeIn, err := openInput(cmd.Input, r.stdin)
	if err != nil {
		return err
	}
	ds, err := readCSV(in, schema.Columns, !cmd.NoHeader)
	closeIn()
	if err != nil {
		return err
	}
	result, err := stage.Execute(ds)
	if err != nil {
		return err
	}
	if cmd.Output == "" || cmd.Output == "-" {
		return writeCSV(r.stdout, result, true)
	}
	out, err := createOutput(cmd.Output)
	if err != nil {
		return err
	}
	if err := writeCSV(out, result, false); err != nil {
		_ = out.Close()
		return err
	}
	return errors.WithStack(out.Close())
}

// loadConfig reads a JSONC config over the defaults. An empty path gives the defaults.
func loadConfig(path string) (*conf.Config, error) {
	cnf := conf.NewDefaultConfig()
	if path != "" {
		b, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		// We use jsonc as it supports comments in JSON
		if err := json.Unmarshal(jsonc.ToJSON(b), cnf); err != nil {
			return nil, errors.NewInvalidConfigurationError(err.Error())
		}
	}
	if err := cnf.Validate(); err != nil {
		return nil, err
	}
	return cnf, nil
}
