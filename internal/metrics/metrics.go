package metrics

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tiiuae/groundcontrol/internal/types"
)

const namespace = "groundcontrol"

// Metrics counts bus traffic. Collectors are safe for concurrent use, so Receive
// updates them directly without an inbox.
type Metrics struct {
	listen   string
	registry *prometheus.Registry

	busMessages    *prometheus.CounterVec
	uploadsStarted *prometheus.CounterVec
	uploadOutcomes *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	socketUp       prometheus.Gauge
	droneUp        prometheus.Gauge
}

// New registers the collectors on a private registry. An empty listen address
// disables the HTTP endpoint.
func New(listen string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		listen:   listen,
		registry: reg,
		busMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bus_messages_total",
				Help:      "Messages posted on the bus by message type",
			},
			[]string{"type"},
		),
		uploadsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_started_total",
				Help:      "Collection uploads sent to the vehicle",
			},
			[]string{"kind"},
		),
		uploadOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_outcomes_total",
				Help:      "Terminal upload results by outcome",
			},
			[]string{"kind", "outcome"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Operator notifications by level",
			},
			[]string{"level"},
		),
		socketUp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "socket_connected",
			Help:      "1 while the backend websocket is connected",
		}),
		droneUp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drone_connected",
			Help:      "1 while the backend reports a drone link",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	if m.listen == "" {
		<-ctx.Done()
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: m.listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	log.Printf("Metrics: serving on %s/metrics", m.listen)

	select {
	case <-ctx.Done():
		log.Println("Metrics shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	case err := <-errs:
		if err != http.ErrServerClosed {
			log.Printf("Metrics: server failed: %v", err)
		}
	}
}

func (m *Metrics) Receive(message types.Message) {
	m.busMessages.WithLabelValues(message.MessageType).Inc()

	switch msg := message.Message.(type) {
	case types.UploadStarted:
		m.uploadsStarted.WithLabelValues(string(msg.Kind)).Inc()
	case types.UploadFinished:
		m.uploadOutcomes.WithLabelValues(string(msg.Kind), string(msg.Outcome)).Inc()
	case types.Notification:
		m.notifications.WithLabelValues(string(msg.Level)).Inc()
	case types.SocketConnected:
		m.socketUp.Set(1)
	case types.SocketDisconnected:
		m.socketUp.Set(0)
		m.droneUp.Set(0)
	case types.DroneConnectionChanged:
		if msg.Connected {
			m.droneUp.Set(1)
		} else {
			m.droneUp.Set(0)
		}
	}
}
