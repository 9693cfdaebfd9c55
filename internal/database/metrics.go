package database

import (
	"fmt"
	"time"

	"verses/internal/observability"

	"gorm.io/gorm"
)

const startedAtKey = "verses:query_started_at"

// RegisterMetrics installs GORM callbacks that feed query latency into Prometheus.
func RegisterMetrics(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(name string, fn func(*gorm.DB)) error
		after  func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		op := h.op
		if err := h.before("metrics:before_"+op, func(tx *gorm.DB) {
			tx.InstanceSet(startedAtKey, time.Now())
		}); err != nil {
			return fmt.Errorf("register %s metrics callback: %w", op, err)
		}
		if err := h.after("metrics:after_"+op, func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(startedAtKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			observability.ObserveQuery(op, tx.Statement.Table, start)
		}); err != nil {
			return fmt.Errorf("register %s metrics callback: %w", op, err)
		}
	}
	return nil
}
