package bus

import (
	"github.com/zeusync/rigsmith/internal/core/observability/log"
)

type logObserver struct {
	logger log.Log
}

// NewLogObserver returns an Observer that logs every delivery at debug
// level and failed deliveries at warn level.
func NewLogObserver(logger log.Log) Observer {
	return &logObserver{logger: log.OrNop(logger).Named("bus")}
}

func (o *logObserver) OnPublish(topic, eventType string, event Event) {
	o.logger.Debug("event published",
		log.String("topic", topic),
		log.String("type", eventType),
		log.String("source", event.Source()))
}

func (o *logObserver) OnDelivered(topic, eventType string, handlers int, err error, durationMicros int64) {
	fields := []log.Field{
		log.String("topic", topic),
		log.String("type", eventType),
		log.Int("handlers", handlers),
		log.Int("micros", int(durationMicros)),
	}
	if err != nil {
		o.logger.Warn("event delivery failed", append(fields, log.Error(err))...)
		return
	}
	o.logger.Debug("event delivered", fields...)
}
