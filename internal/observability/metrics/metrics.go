package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flows.
type BookingMetrics struct {
	slotFetchTotal    *prometheus.CounterVec
	slotFetchDuration *prometheus.HistogramVec
	bookingsTotal     *prometheus.CounterVec
	activeSessions    prometheus.Gauge
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		slotFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teesheet",
			Subsystem: "slots",
			Name:      "fetch_total",
			Help:      "Total slot availability fetches against the booking service",
		}, []string{"status"}),
		slotFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "teesheet",
			Subsystem: "slots",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of slot availability fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teesheet",
			Subsystem: "bookings",
			Name:      "submitted_total",
			Help:      "Total booking submissions by outcome",
		}, []string{"status"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "teesheet",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Live booking sessions held in memory",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotFetchTotal, m.slotFetchDuration, m.bookingsTotal, m.activeSessions)
	return m
}

func (m *BookingMetrics) ObserveSlotFetch(status string, seconds float64) {
	if m == nil {
		return
	}
	m.slotFetchTotal.WithLabelValues(status).Inc()
	m.slotFetchDuration.WithLabelValues(status).Observe(seconds)
}

func (m *BookingMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *BookingMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
