// Package metrics — счётчики Prometheus для клиента. Все методы
// безопасны на nil *Metrics: метрики можно просто не передавать.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "webcast"

type Metrics struct {
	framesReceived  prometheus.Counter
	framesSent      *prometheus.CounterVec
	decodeErrors    prometheus.Counter
	messages        *prometheus.CounterVec
	events          *prometheus.CounterVec
	sourceFailures  *prometheus.CounterVec
	connectAttempts *prometheus.CounterVec
	connected       prometheus.Gauge
}

// New регистрирует метрики в reg (nil — prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		framesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Push frames received over the websocket",
		}),
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Push frames queued for sending, by payload type",
		}, []string{"payload_type"}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Frames or nested messages that failed to decode",
		}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Decoded webcast messages, by message type",
		}, []string{"msg_type"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Events emitted to subscribers, by kind",
		}, []string{"kind"}),
		sourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_source_failures_total",
			Help:      "Room resolution source failures, by source",
		}, []string{"source"}),
		connectAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Connection attempts, by result",
		}, []string{"result"}),
		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 while the websocket is connected",
		}),
	}
}

func (m *Metrics) FrameReceived() {
	if m != nil {
		m.framesReceived.Inc()
	}
}

func (m *Metrics) FrameSent(payloadType string) {
	if m != nil {
		m.framesSent.WithLabelValues(payloadType).Inc()
	}
}

func (m *Metrics) DecodeError() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}

func (m *Metrics) Message(msgType string) {
	if m != nil {
		m.messages.WithLabelValues(msgType).Inc()
	}
}

func (m *Metrics) Event(kind string) {
	if m != nil {
		m.events.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SourceFailure(source string) {
	if m != nil {
		m.sourceFailures.WithLabelValues(source).Inc()
	}
}

// ConnectAttempt — result: "ok" или "error".
func (m *Metrics) ConnectAttempt(result string) {
	if m != nil {
		m.connectAttempts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) SetConnected(v bool) {
	if m == nil {
		return
	}
	if v {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}
