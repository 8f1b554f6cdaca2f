package monitor

import (
	"log/slog"
	"strings"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"
)

// Publisher is the subset of mqtt.Client used by the exporter.
type Publisher interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTExporter publishes every event it observes to <topic><event path>,
// msgpack encoded. Publishing never blocks: events are dropped while the
// broker connection is down.
type MQTTExporter struct {
	client Publisher
	topic  string
	qos    byte
	logger *slog.Logger

	published atomic.Uint64
	dropped   atomic.Uint64
	errors    atomic.Uint64
}

// NewMQTTExporter creates an exporter rooted at topic (e.g. "playout/monitor").
func NewMQTTExporter(client Publisher, topic string, qos byte, logger *slog.Logger) *MQTTExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTExporter{
		client: client,
		topic:  strings.TrimRight(topic, "/"),
		qos:    qos,
		logger: logger.With("component", "monitor-mqtt"),
	}
}

// OnEvent implements Observer.
func (x *MQTTExporter) OnEvent(e Event) {
	if x.client == nil || !x.client.IsConnectionOpen() {
		x.dropped.Add(1)
		return
	}

	payload, err := msgpack.Marshal(&e)
	if err != nil {
		if x.errors.Add(1) == 1 {
			x.logger.Warn("failed to encode monitor event", "path", e.Path, "error", err)
		}
		return
	}

	x.client.Publish(x.topic+e.Path, x.qos, false, payload)
	x.published.Add(1)
}

// ExporterStats is a counter snapshot.
type ExporterStats struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Errors    uint64 `json:"errors"`
}

// Stats returns the exporter counters.
func (x *MQTTExporter) Stats() ExporterStats {
	return ExporterStats{
		Published: x.published.Load(),
		Dropped:   x.dropped.Load(),
		Errors:    x.errors.Load(),
	}
}

// Decode unpacks a payload produced by the exporter.
func Decode(payload []byte) (Event, error) {
	var e Event
	err := msgpack.Unmarshal(payload, &e)
	return e, err
}
