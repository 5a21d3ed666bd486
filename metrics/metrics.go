package metrics

type Counter interface {
	Inc()
	Add(delta float64)
}

type Gauge interface {
	Set(val float64)
	Add(delta float64)
}

type Factory interface {
	// CreateCounter returns the counter registered under name, creating it on first use.
	CreateCounter(name string, description string) (Counter, error)

	CreateGauge(name string, description string) (Gauge, error)

	Start() error

	Stop() error
}

// NewNoopFactory returns a factory whose metrics record nothing.
func NewNoopFactory() Factory {
	return noopFactory{}
}

type noopFactory struct{}

func (noopFactory) CreateCounter(string, string) (Counter, error) {
	return noopMetric{}, nil
}

func (noopFactory) CreateGauge(string, string) (Gauge, error) {
	return noopMetric{}, nil
}

func (noopFactory) Start() error {
	return nil
}

func (noopFactory) Stop() error {
	return nil
}

type noopMetric struct{}

func (noopMetric) Inc() {}

func (noopMetric) Add(float64) {}

func (noopMetric) Set(float64) {}
