package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	stmt := func() (string, int64) { return `UPDATE "promotions" SET "used_count"=used_count + 1`, 1 }

	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		elapsed time.Duration
		err     error
		wantMsg string
		wantLvl zapcore.Level
	}{
		{"failure", gormlogger.Warn, time.Millisecond, errors.New("deadlock detected"), "query failed", zapcore.ErrorLevel},
		{"slow", gormlogger.Warn, time.Second, nil, "slow query", zapcore.WarnLevel},
		{"statement at info", gormlogger.Info, time.Millisecond, nil, "query", zapcore.DebugLevel},
		{"missing row is not a failure", gormlogger.Info, time.Millisecond, gormlogger.ErrRecordNotFound, "query", zapcore.DebugLevel},
		{"fast statement at warn", gormlogger.Warn, time.Millisecond, nil, "", 0},
		{"silent", gormlogger.Silent, time.Second, errors.New("boom"), "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level, WithSlowThreshold(100*time.Millisecond))

			ctx := WithRequestID(context.Background(), "req-5")
			gl.Trace(ctx, time.Now().Add(-tt.elapsed), stmt, tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, logs.Len())
				return
			}
			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.wantLvl, entry.Level)
			assert.Equal(t, "req-5", entry.ContextMap()["request_id"])
			assert.Equal(t, "gorm", entry.LoggerName)
		})
	}
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Warn)
	quiet := gl.LogMode(gormlogger.Silent).(*GormLogger)

	assert.Equal(t, gormlogger.Silent, quiet.level)
	assert.Equal(t, gormlogger.Warn, gl.level)
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, GormLevel("debug"))
	assert.Equal(t, gormlogger.Info, GormLevel("INFO"))
	assert.Equal(t, gormlogger.Warn, GormLevel("warn"))
	assert.Equal(t, gormlogger.Error, GormLevel("error"))
	assert.Equal(t, gormlogger.Silent, GormLevel("silent"))
	assert.Equal(t, gormlogger.Warn, GormLevel(""))
}
