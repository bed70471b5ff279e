// Package metrics exposes bot counters on the Prometheus registry and
// round-trips them through sqlite so totals survive restarts.
package metrics

import (
	"sync"

	"twstock-line-bot/internal/database"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

type BotMetrics struct {
	EventsHandled     prometheus.Counter
	CommandsProcessed prometheus.Counter
	AlertsChecked     prometheus.Counter
	AlertsTriggered   prometheus.Counter
	CommandsPerIntent *prometheus.CounterVec
	UsersCount        prometheus.Gauge

	mu        sync.Mutex
	usersSeen map[string]bool
}

func New() *BotMetrics {
	m := &BotMetrics{
		EventsHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "twstock",
			Subsystem: "line_bot",
			Name:      "events_handled",
			Help:      "The total number of handled webhook events",
		}),
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "twstock",
			Subsystem: "line_bot",
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		AlertsChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "twstock",
			Subsystem: "line_bot",
			Name:      "alerts_checked",
			Help:      "The total number of alert rules evaluated",
		}),
		AlertsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "twstock",
			Subsystem: "line_bot",
			Name:      "alerts_triggered",
			Help:      "The total number of alert notifications pushed",
		}),
		CommandsPerIntent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "twstock",
				Subsystem: "line_bot",
				Name:      "commands_per_intent",
				Help:      "The total number of commands handled per intent",
			},
			[]string{"intent"},
		),
		UsersCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "twstock",
			Subsystem: "line_bot",
			Name:      "users_count",
			Help:      "The number of unique users the bot has talked to",
		}),
		usersSeen: make(map[string]bool),
	}

	prometheus.MustRegister(m.EventsHandled)
	prometheus.MustRegister(m.CommandsProcessed)
	prometheus.MustRegister(m.AlertsChecked)
	prometheus.MustRegister(m.AlertsTriggered)
	prometheus.MustRegister(m.CommandsPerIntent)
	prometheus.MustRegister(m.UsersCount)

	return m
}

// CommandHandled records one processed command under its intent label.
func (m *BotMetrics) CommandHandled(intent string) {
	m.CommandsProcessed.Inc()
	m.CommandsPerIntent.WithLabelValues(intent).Inc()
}

// SeenUser tracks the unique-user gauge.
func (m *BotMetrics) SeenUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.usersSeen[userID] {
		m.usersSeen[userID] = true
		m.UsersCount.Set(float64(len(m.usersSeen)))
	}
}

// LoadFromDB seeds the registry from persisted totals.
func (m *BotMetrics) LoadFromDB() {
	m.mu.Lock()
	defer m.mu.Unlock()

	eventsHandled, _ := database.GetMetric("events_handled")
	commandsProcessed, _ := database.GetMetric("commands_processed")
	alertsChecked, _ := database.GetMetric("alerts_checked")
	alertsTriggered, _ := database.GetMetric("alerts_triggered")

	m.EventsHandled.Add(eventsHandled)
	m.CommandsProcessed.Add(commandsProcessed)
	m.AlertsChecked.Add(alertsChecked)
	m.AlertsTriggered.Add(alertsTriggered)

	perIntent, _ := database.GetMetricsWithLabels("commands_per_intent")
	for intent, value := range perIntent["intent"] {
		m.CommandsPerIntent.WithLabelValues(intent).Add(value)
	}

	users, _ := database.GetMetricsWithLabels("known_users")
	for userID := range users["user_id"] {
		m.usersSeen[userID] = true
	}
	m.UsersCount.Set(float64(len(m.usersSeen)))

	log.Debug("metrics loaded from database")
}

// SaveToDB persists the current totals.
func (m *BotMetrics) SaveToDB() {
	m.mu.Lock()
	defer m.mu.Unlock()

	database.SaveMetric("events_handled", counterValue(m.EventsHandled))
	database.SaveMetric("commands_processed", counterValue(m.CommandsProcessed))
	database.SaveMetric("alerts_checked", counterValue(m.AlertsChecked))
	database.SaveMetric("alerts_triggered", counterValue(m.AlertsTriggered))

	for intent, value := range collectVec(m.CommandsPerIntent, "intent") {
		database.SaveMetricWithLabel("commands_per_intent", "intent", intent, value)
	}

	for userID := range m.usersSeen {
		database.SaveMetricWithLabel("known_users", "user_id", userID, 1)
	}

	log.Debug("metrics saved to database")
}

// counterValue reads the current value out of a collector.
func counterValue(metric prometheus.Collector) float64 {
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Errorf("failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		return metricProto.Counter.GetValue()
	}
	if metricProto.Gauge != nil {
		return metricProto.Gauge.GetValue()
	}
	return 0
}

// collectVec reads every sample of a counter vec keyed by one label.
func collectVec(vec *prometheus.CounterVec, label string) map[string]float64 {
	metricChan := make(chan prometheus.Metric)
	go func() {
		vec.Collect(metricChan)
		close(metricChan)
	}()

	out := make(map[string]float64)
	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Errorf("failed to read labeled metric: %v", err)
			continue
		}
		for _, l := range metricProto.Label {
			if l.GetName() == label {
				out[l.GetValue()] = metricProto.Counter.GetValue()
			}
		}
	}
	return out
}
