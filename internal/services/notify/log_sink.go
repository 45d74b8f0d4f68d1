package notify

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/models"
)

// LogSink writes alerts to the application log.
type LogSink struct {
	logger arbor.ILogger
}

// NewLogSink creates a sink logging at info level.
func NewLogSink(logger arbor.ILogger) *LogSink {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, alert models.Alert) error {
	event := s.logger.Info().Str("title", alert.Title).Str("symbol", alert.Symbol)
	if alert.Setup != nil {
		event = event.
			Float64("confidence", alert.Setup.Confidence).
			Float64("trigger", alert.Setup.TriggerPrice).
			Str("setup_type", alert.Setup.SetupType)
	}
	event.Msg(alert.Body)
	return nil
}
