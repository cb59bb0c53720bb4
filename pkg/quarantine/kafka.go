package quarantine

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// KafkaSink publishes quarantine records to a dedicated topic, keyed by the
// reading's event identifier.
type KafkaSink struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewKafkaSink creates a sink over a producer bound to the quarantine topic.
func NewKafkaSink(producer *kafka.Producer, logger ectologger.Logger) *KafkaSink {
	return &KafkaSink{
		producer: producer,
		logger:   logger,
	}
}

func (s *KafkaSink) Quarantine(ctx context.Context, record Record) error {
	ctx, span := tracing.StartSpan(ctx, "quarantine.KafkaSink.Quarantine")
	defer span.End()

	if record.QuarantinedAt.IsZero() {
		record.QuarantinedAt = time.Now().UTC()
	}

	headers := map[string]string{
		"loc_id": record.Reading.LocID,
	}
	if err := s.producer.Publish(ctx, record.Reading.EventID, record, headers); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"evt_id": record.Reading.EventID,
		}).Error("Failed to publish quarantine record")
		return err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"evt_id":  record.Reading.EventID,
		"reasons": record.Reasons,
	}).Info("Quarantined reading")
	return nil
}
