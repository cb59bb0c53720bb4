package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/sage/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string
	TraceState  string

	// Parsed content
	Reading *models.RawReading
}

// NewIncomingMessage wraps a fetched Kafka message, lifting the W3C trace
// headers the producers inject.
func NewIncomingMessage(msg kafka.Message) *IncomingMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	return &IncomingMessage{
		Key:         string(msg.Key),
		Value:       msg.Value,
		Headers:     headers,
		Partition:   msg.Partition,
		Offset:      msg.Offset,
		Timestamp:   msg.Time,
		Topic:       msg.Topic,
		TraceParent: headers["traceparent"],
		TraceState:  headers["tracestate"],
	}
}

// ParseReading parses the message value as a sensor reading. Field gateways
// emit two shapes: the flat reading and the nested device envelope with
// location/sensor_data/weather_data blocks. The envelope is detected by its
// nested blocks and flattened.
func (m *IncomingMessage) ParseReading() error {
	var envelope models.ReadingEnvelope
	if err := json.Unmarshal(m.Value, &envelope); err == nil && isEnvelope(&envelope) {
		reading := envelope.Flatten()
		m.Reading = &reading
		return m.finishParse()
	}

	var reading models.RawReading
	if err := json.Unmarshal(m.Value, &reading); err != nil {
		return err
	}
	m.Reading = &reading
	return m.finishParse()
}

func (m *IncomingMessage) finishParse() error {
	if m.Reading.EventID == "" {
		// Some gateways only carry the event identifier as the message key.
		if m.Key == "" {
			return fmt.Errorf("reading has no event identifier")
		}
		m.Reading.EventID = m.Key
	}
	return nil
}

func isEnvelope(e *models.ReadingEnvelope) bool {
	return e.SensorData != nil || e.WeatherData != nil || e.Location != nil
}

// GetEventID returns the event identifier for this message
func (m *IncomingMessage) GetEventID() string {
	if m.Reading != nil && m.Reading.EventID != "" {
		return m.Reading.EventID
	}
	if id := m.Headers["event_id"]; id != "" {
		return id
	}
	return m.Key
}

// GetLocID returns the site identifier for this message
func (m *IncomingMessage) GetLocID() string {
	if m.Reading != nil {
		return m.Reading.LocID
	}
	return m.Headers["loc_id"]
}
