package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the bot's Prometheus metrics in a private registry, so
// NewMetrics can be called more than once (tests).
type Metrics struct {
	Registry *prometheus.Registry

	updates        *prometheus.CounterVec
	commandErrors  *prometheus.CounterVec
	planLength     prometheus.Histogram
	remindersSent  prometheus.Counter
	commandLatency *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		updates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debtbook_updates_total",
				Help: "Telegram updates handled, by command.",
			},
			[]string{"command"},
		),
		commandErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debtbook_command_errors_total",
				Help: "Commands that ended with an error reply.",
			},
			[]string{"command"},
		),
		planLength: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "debtbook_plan_items",
				Help:    "Number of installments in projected plans.",
				Buckets: []float64{0, 1, 3, 6, 12, 24, 48, 100},
			},
		),
		remindersSent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "debtbook_reminders_sent_total",
				Help: "Due-date reminders delivered.",
			},
		),
		commandLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "debtbook_command_duration_seconds",
				Help:    "Command handling latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
	}
}

func (m *Metrics) ObserveCommand(command string, d time.Duration, failed bool) {
	m.updates.WithLabelValues(command).Inc()
	m.commandLatency.WithLabelValues(command).Observe(d.Seconds())
	if failed {
		m.commandErrors.WithLabelValues(command).Inc()
	}
}

func (m *Metrics) ObservePlan(items int) { m.planLength.Observe(float64(items)) }

func (m *Metrics) ReminderSent() { m.remindersSent.Inc() }

// Router exposes /metrics and /healthz.
func (m *Metrics) Router() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Serve runs the metrics server until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
