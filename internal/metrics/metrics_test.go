package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.FrameReceived()
	m.FrameReceived()
	m.FrameSent("hb")
	m.Message("WebcastChatMessage")
	m.SourceFailure("html")
	m.ConnectAttempt("ok")
	m.SetConnected(true)

	if got := testutil.ToFloat64(m.framesReceived); got != 2 {
		t.Errorf("frames received = %v", got)
	}
	if got := testutil.ToFloat64(m.framesSent.WithLabelValues("hb")); got != 1 {
		t.Errorf("hb sent = %v", got)
	}
	if got := testutil.ToFloat64(m.sourceFailures.WithLabelValues("html")); got != 1 {
		t.Errorf("html failures = %v", got)
	}
	if got := testutil.ToFloat64(m.connected); got != 1 {
		t.Errorf("connected = %v", got)
	}
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.FrameReceived()
	m.FrameSent("ack")
	m.DecodeError()
	m.Message("x")
	m.Event("chat")
	m.SourceFailure("api")
	m.ConnectAttempt("error")
	m.SetConnected(false)
}
