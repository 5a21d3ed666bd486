package prometheus

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/conf"
	"github.com/squareup/winagg/errors"
	"github.com/squareup/winagg/metrics"
)

// Factory registers metrics in its own registry and serves them over HTTP between Start and Stop.
type Factory struct {
	config     conf.Config
	lock       sync.Mutex
	registry   *prometheus.Registry
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	httpServer *http.Server
	started    bool
}

func NewFactory(config conf.Config) *Factory {
	return &Factory{
		config:   config,
		registry: prometheus.NewRegistry(),
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
	}
}

func (f *Factory) CreateCounter(name string, description string) (metrics.Counter, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if c, ok := f.counters[name]; ok {
		return c, nil
	}
	pCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: description,
	})
	if err := f.registry.Register(pCounter); err != nil {
		return nil, errors.WithStack(err)
	}
	c := &Counter{pCounter: pCounter}
	f.counters[name] = c
	return c, nil
}

func (f *Factory) CreateGauge(name string, description string) (metrics.Gauge, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if g, ok := f.gauges[name]; ok {
		return g, nil
	}
	pGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: description,
	})
	if err := f.registry.Register(pGauge); err != nil {
		return nil, errors.WithStack(err)
	}
	g := &Gauge{pGauge: pGauge}
	f.gauges[name] = g
	return g, nil
}

func (f *Factory) Start() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.started {
		return errors.New("already started")
	}
	metricsListenAddr := conf.DefaultMetricsListenAddr
	if f.config.MetricsListenAddr != "" {
		metricsListenAddr = f.config.MetricsListenAddr
	}
	f.httpServer = &http.Server{Addr: metricsListenAddr, Handler: promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{})}
	f.started = true
	go func(srv *http.Server) {
		defer common.PanicHandler()
		log.Debugf("starting prometheus http server on address %s", metricsListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("prometheus http export server failed to listen %v", err)
		}
	}(f.httpServer)
	return nil
}

func (f *Factory) Stop() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.started {
		return errors.New("not started")
	}
	f.started = false
	if f.httpServer != nil {
		return f.httpServer.Close()
	}
	return nil
}

// Gather exposes the registry's current values.
func (f *Factory) Gather() (map[string]float64, error) {
	families, err := f.registry.Gather()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	res := make(map[string]float64, len(families))
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				res[mf.GetName()] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				res[mf.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	return res, nil
}

type Counter struct {
	pCounter prometheus.Counter
}

func (c *Counter) Inc() {
	c.pCounter.Inc()
}

func (c *Counter) Add(delta float64) {
	c.pCounter.Add(delta)
}

type Gauge struct {
	pGauge prometheus.Gauge
}

func (g *Gauge) Set(val float64) {
	g.pGauge.Set(val)
}

func (g *Gauge) Add(delta float64) {
	g.pGauge.Add(delta)
}
