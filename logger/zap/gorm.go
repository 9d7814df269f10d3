package zap

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	gorml "gorm.io/gorm/logger"

	"github.com/forbearing/uow/config"
	"github.com/forbearing/uow/internal/uowutil"
	"github.com/forbearing/uow/types"
)

// GormLogger implements gorm's logger.Interface on top of types.Logger,
// adding slow-query detection against config.App.Database.SlowQueryMS.
type GormLogger struct{ l types.Logger }

var _ gorml.Interface = (*GormLogger)(nil)

func (g *GormLogger) LogMode(gorml.LogLevel) gorml.Interface           { return g }
func (g *GormLogger) Info(_ context.Context, str string, args ...any)  { g.l.Infow(str, args...) }
func (g *GormLogger) Warn(_ context.Context, str string, args ...any)  { g.l.Warnw(str, args...) }
func (g *GormLogger) Error(_ context.Context, str string, args ...any) { g.l.Errorw(str, args...) }

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	username, _ := ctx.Value(types.CtxUsername).(string)
	userID, _ := ctx.Value(types.CtxUserID).(string)
	traceID, _ := ctx.Value(types.CtxTraceID).(string)
	if len(traceID) == 0 {
		spanCtx := trace.SpanFromContext(ctx).SpanContext()
		if spanCtx.HasTraceID() {
			traceID = spanCtx.TraceID().String()
		}
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil {
		g.l.Errorz("gorm query failed",
			zap.String("sql", sql), zap.Int64("rows", rows),
			zap.String("elapsed", uowutil.FormatDurationSmart(elapsed)), zap.Error(err))
		return
	}

	threshold := time.Duration(slowQueryMS()) * time.Millisecond
	if elapsed > threshold {
		g.l.Warnz("slow SQL detected",
			zap.String("username", username), zap.String("user_id", userID), zap.String("trace_id", traceID),
			zap.String("sql", sql), zap.String("elapsed", uowutil.FormatDurationSmart(elapsed)),
			zap.String("threshold", threshold.String()), zap.Int64("rows", rows))
		return
	}
	g.l.Infoz("sql executed",
		zap.String("username", username), zap.String("user_id", userID), zap.String("trace_id", traceID),
		zap.String("sql", sql), zap.String("elapsed", uowutil.FormatDurationSmart(elapsed)), zap.Int64("rows", rows))
}

func slowQueryMS() int {
	if config.App == nil || config.App.Database.SlowQueryMS == 0 {
		return 200
	}
	return config.App.Database.SlowQueryMS
}
