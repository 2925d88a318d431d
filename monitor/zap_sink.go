// Package monitor implements a treeture.Sink backed by structured logging,
// so a running pool's scheduling events can be observed the same way the
// rest of the ambient stack logs: through zap.
package monitor

import (
	"go.uber.org/zap"

	"treeture"
)

// ZapSink logs task start/end events at debug level, since a busy pool
// emits one pair of these per leaf task, and every other treeture.Event at
// info level.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink wraps log as a treeture.Sink. A nil log falls back to
// zap.NewNop(), matching the "never invoke a nil Sink but never require
// one either" contract treeture.Sink documents.
func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log.Named("treeture")}
}

// Notify implements treeture.Sink.
func (s *ZapSink) Notify(evt treeture.Event) {
	fields := []zap.Field{
		zap.Int("worker", evt.WorkerID),
	}
	if evt.TaskID != (treeture.TaskID{}) {
		fields = append(fields, zap.Stringer("task", evt.TaskID))
	}

	switch evt.Type {
	case treeture.TaskStarted, treeture.TaskEnded:
		s.log.Debug(evt.Type.String(), fields...)
	case treeture.TaskStolen:
		s.log.Info(evt.Type.String(), fields...)
	default:
		s.log.Info(evt.Type.String(), fields...)
	}
}
