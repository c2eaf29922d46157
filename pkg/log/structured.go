package log

import (
	"context"
	"time"

	"github.com/aerae/accelerator/pkg/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StructuredLogger emits one debug line per operation step on top of the global zap logger.
//
//	tracer := log.NewDebugLogger("assessment_service").
//		WithContext(ctx).
//		Operation("create_job").
//		WithUUID("job_id", id).
//		Build()
//	tracer.Step("persisted").Log()
//	tracer.Success().Log()
type StructuredLogger struct {
	name string
}

func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name}
}

func (l *StructuredLogger) WithContext(ctx context.Context) *OperationBuilder {
	b := &OperationBuilder{name: l.name}
	if id := requestid.FromContext(ctx); id != "" {
		b.fields = append(b.fields, zap.String("request_id", id))
	}
	return b
}

type OperationBuilder struct {
	name      string
	operation string
	fields    []zap.Field
}

func (b *OperationBuilder) Operation(op string) *OperationBuilder {
	b.operation = op
	return b
}

func (b *OperationBuilder) WithParam(key string, value any) *OperationBuilder {
	b.fields = append(b.fields, zap.Any(key, value))
	return b
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value))
	return b
}

func (b *OperationBuilder) WithUUID(key string, value uuid.UUID) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value.String()))
	return b
}

func (b *OperationBuilder) Build() *OperationTracer {
	return &OperationTracer{
		logger:    zap.L().Named(b.name),
		operation: b.operation,
		fields:    b.fields,
		start:     time.Now(),
	}
}

// OperationTracer carries the operation fields across every event it produces.
type OperationTracer struct {
	logger    *zap.Logger
	operation string
	fields    []zap.Field
	start     time.Time
}

func (t *OperationTracer) Step(step string) *Event {
	return t.event(zap.DebugLevel, "step", zap.String("step", step))
}

func (t *OperationTracer) Success() *Event {
	return t.event(zap.DebugLevel, "success", zap.Duration("duration", time.Since(t.start)))
}

func (t *OperationTracer) Warn(err error) *Event {
	return t.event(zap.WarnLevel, "warning", zap.Error(err))
}

func (t *OperationTracer) Error(err error) *Event {
	return t.event(zap.ErrorLevel, "error", zap.Error(err), zap.Duration("duration", time.Since(t.start)))
}

func (t *OperationTracer) event(level zapcore.Level, msg string, extra ...zap.Field) *Event {
	fields := make([]zap.Field, 0, len(t.fields)+len(extra)+1)
	fields = append(fields, zap.String("operation", t.operation))
	fields = append(fields, t.fields...)
	fields = append(fields, extra...)
	return &Event{logger: t.logger, level: level, msg: msg, fields: fields}
}

type Event struct {
	logger *zap.Logger
	level  zapcore.Level
	msg    string
	fields []zap.Field
}

func (e *Event) WithString(key, value string) *Event {
	e.fields = append(e.fields, zap.String(key, value))
	return e
}

func (e *Event) WithInt(key string, value int) *Event {
	e.fields = append(e.fields, zap.Int(key, value))
	return e
}

func (e *Event) WithBool(key string, value bool) *Event {
	e.fields = append(e.fields, zap.Bool(key, value))
	return e
}

func (e *Event) WithUUID(key string, value uuid.UUID) *Event {
	e.fields = append(e.fields, zap.String(key, value.String()))
	return e
}

func (e *Event) WithParam(key string, value any) *Event {
	e.fields = append(e.fields, zap.Any(key, value))
	return e
}

func (e *Event) Log() {
	if ce := e.logger.Check(e.level, e.msg); ce != nil {
		ce.Write(e.fields...)
	}
}
