package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// DBTracingConfig controls the spans emitted for GORM statements
type DBTracingConfig struct {
	DBName        string
	LogFullSQL    bool          // keep bind variables in db.statement; never in production
	SlowThreshold time.Duration // zero disables slow query marking
}

type gormRegister interface {
	Register(name string, fn func(*gorm.DB)) error
}

// InstrumentDB registers otelgorm on db and adds the table name, row count and
// a slow query flag to every statement span before otelgorm ends it.
func InstrumentDB(db *gorm.DB, cfg DBTracingConfig) error {
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}

	a := &statementAnnotator{slow: cfg.SlowThreshold}
	cb := db.Callback()
	hooks := []struct {
		name     string
		register gormRegister
		fn       func(*gorm.DB)
	}{
		{"start:create", cb.Create().Before("gorm:create"), markStart},
		{"start:query", cb.Query().Before("gorm:query"), markStart},
		{"start:update", cb.Update().Before("gorm:update"), markStart},
		{"start:delete", cb.Delete().Before("gorm:delete"), markStart},
		{"start:row", cb.Row().Before("gorm:row"), markStart},
		{"start:raw", cb.Raw().Before("gorm:raw"), markStart},
		{"annotate:create", cb.Create().After("gorm:create").Before("otel:after:create"), a.annotate},
		{"annotate:query", cb.Query().After("gorm:query").Before("otel:after:select"), a.annotate},
		{"annotate:update", cb.Update().After("gorm:update").Before("otel:after:update"), a.annotate},
		{"annotate:delete", cb.Delete().After("gorm:delete").Before("otel:after:delete"), a.annotate},
		{"annotate:row", cb.Row().After("gorm:row").Before("otel:after:row"), a.annotate},
		{"annotate:raw", cb.Raw().After("gorm:raw").Before("otel:after:raw"), a.annotate},
	}
	for _, h := range hooks {
		if err := h.register.Register("marketplace:"+h.name, h.fn); err != nil {
			return fmt.Errorf("register %s callback: %w", h.name, err)
		}
	}
	return nil
}

const startedAtKey = "marketplace:started_at"

func markStart(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

type statementAnnotator struct {
	slow time.Duration
}

func (a *statementAnnotator) annotate(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Error != nil && errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetAttributes(attribute.Bool("db.not_found", true))
	}

	started, ok := db.InstanceGet(startedAtKey)
	if !ok || a.slow <= 0 {
		return
	}
	if elapsed := time.Since(started.(time.Time)); elapsed > a.slow {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		)
	}
}
