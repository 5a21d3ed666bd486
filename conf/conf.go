package conf

import (
	"fmt"

	"github.com/squareup/winagg/errors"
	"github.com/squareup/winagg/log"
)

const (
	DefaultParallelism       = 4
	DefaultPartitionCount    = 8
	DefaultKernelModule      = "builtin"
	DefaultEncodeBufferSize  = 256
	DefaultMetricsListenAddr = "localhost:2112"
)

type EngineType string

const (
	EngineMemory EngineType = "memory"
	EnginePebble EngineType = "pebble"
)

type Config struct {
	Parallelism           int        `json:"parallelism,omitempty"`     // Worker goroutines running partitions
	PartitionCount        int        `json:"partition_count,omitempty"` // 0 means DefaultPartitionCount
	DefaultPartitionCount int        `json:"default_partition_count,omitempty"`
	Engine                EngineType `json:"engine,omitempty"`
	DataDir               string     `json:"data_dir,omitempty"`
	InMemoryStore         bool       `json:"in_memory_store,omitempty"`
	KernelModule          string     `json:"kernel_module,omitempty"`
	EncodeBufferSize      int        `json:"encode_buffer_size,omitempty"`
	CopyOutputRows        bool       `json:"copy_output_rows,omitempty"`
	EnableMetrics         bool       `json:"enable_metrics,omitempty"`
	MetricsListenAddr     string     `json:"metrics_listen_addr,omitempty"`
	Log                   log.Config `json:"log,omitempty"`
}

func (c *Config) Validate() error { //nolint:gocyclo
	if c.Parallelism < 1 {
		return errors.NewInvalidConfigurationError("Parallelism must be >= 1")
	}
	if c.PartitionCount < 0 {
		return errors.NewInvalidConfigurationError("PartitionCount must be >= 0")
	}
	if c.DefaultPartitionCount < 1 {
		return errors.NewInvalidConfigurationError("DefaultPartitionCount must be >= 1")
	}
	switch c.Engine {
	case EngineMemory:
	case EnginePebble:
		if c.DataDir == "" && !c.InMemoryStore {
			return errors.NewInvalidConfigurationError("DataDir must be specified for the pebble engine")
		}
	default:
		return errors.NewInvalidConfigurationError(fmt.Sprintf("Engine must be %s or %s", EngineMemory, EnginePebble))
	}
	if c.KernelModule == "" {
		return errors.NewInvalidConfigurationError("KernelModule must be specified")
	}
	if c.EncodeBufferSize < 0 {
		return errors.NewInvalidConfigurationError("EncodeBufferSize must be >= 0")
	}
	if c.EnableMetrics && c.MetricsListenAddr == "" {
		return errors.NewInvalidConfigurationError("MetricsListenAddr must be specified")
	}
	return nil
}

// NumPartitions is the partition count a stage runs with.
func (c *Config) NumPartitions() int {
	if c.PartitionCount > 0 {
		return c.PartitionCount
	}
	return c.DefaultPartitionCount
}

func NewDefaultConfig() *Config {
	return &Config{
		Parallelism:           DefaultParallelism,
		DefaultPartitionCount: DefaultPartitionCount,
		Engine:                EngineMemory,
		KernelModule:          DefaultKernelModule,
		EncodeBufferSize:      DefaultEncodeBufferSize,
		MetricsListenAddr:     DefaultMetricsListenAddr,
		Log:                   log.Config{Format: "text", Level: "info", File: "-"},
	}
}

func NewTestConfig() *Config {
	cnf := NewDefaultConfig()
	cnf.Parallelism = 2
	cnf.DefaultPartitionCount = 3
	cnf.CopyOutputRows = true
	return cnf
}
