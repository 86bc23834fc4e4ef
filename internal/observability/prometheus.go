package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const shutdownTimeout = 5 * time.Second

// PrometheusProvider creates an OTel MeterProvider whose instruments are
// exported through a dedicated Prometheus registry, and an [http.Handler]
// serving that registry.
func PrometheusProvider() (*sdkmetric.MeterProvider, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return mp, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// MetricsServer serves /metrics on addr until Close is called.
type MetricsServer struct {
	srv      *http.Server
	listener net.Listener
	provider *sdkmetric.MeterProvider
}

// ServeMetrics starts a Prometheus endpoint on addr and returns the
// server along with the provider to build instruments from.
func ServeMetrics(addr string, logger *slog.Logger) (*MetricsServer, error) {
	mp, handler, err := PrometheusProvider()
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	ms := &MetricsServer{
		srv:      &http.Server{Handler: mux, ReadHeaderTimeout: shutdownTimeout},
		listener: ln,
		provider: mp,
	}
	go func() {
		if err := ms.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return ms, nil
}

// Addr returns the address the server listens on.
func (ms *MetricsServer) Addr() string { return ms.listener.Addr().String() }

// Provider returns the meter provider backing the endpoint.
func (ms *MetricsServer) Provider() *sdkmetric.MeterProvider { return ms.provider }

// Close stops the server and the meter provider.
func (ms *MetricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(ms.srv.Shutdown(ctx), ms.provider.Shutdown(ctx))
}
