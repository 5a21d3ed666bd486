package plan

import "github.com/squareup/winagg/metrics"

type stageMetrics struct {
	rowsIn            metrics.Counter
	rowsOut           metrics.Counter
	windowsCreated    metrics.Counter
	partitionsFailed  metrics.Counter
	partitionsRunning metrics.Gauge
}

func newStageMetrics(factory metrics.Factory) (*stageMetrics, error) {
	var err error
	m := &stageMetrics{}
	if m.rowsIn, err = factory.CreateCounter("winagg_rows_in_total", "rows read by window stages"); err != nil {
		return nil, err
	}
	if m.rowsOut, err = factory.CreateCounter("winagg_rows_out_total", "rows produced by window stages"); err != nil {
		return nil, err
	}
	if m.windowsCreated, err = factory.CreateCounter("winagg_windows_created_total",
		"windows created, one per group run in a partition"); err != nil {
		return nil, err
	}
	if m.partitionsFailed, err = factory.CreateCounter("winagg_partitions_failed_total",
		"partitions whose window loop failed"); err != nil {
		return nil, err
	}
	if m.partitionsRunning, err = factory.CreateGauge("winagg_partitions_running",
		"partitions currently running the window loop"); err != nil {
		return nil, err
	}
	return m, nil
}
