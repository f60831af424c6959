// Package audit records session lifecycle events (open, close, command
// execution, and failures) to a relational sink, mirroring the
// Type+DSN-selected gorm backend pattern used for the sibling project's
// own database configuration (sqlite for a single node, postgres for a
// shared fleet-wide log).
package audit

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ipmitool/go-ipmi-lanplus"
)

// Event is one row of the session audit trail.
type Event struct {
	ID        uint `gorm:"primaryKey"`
	Timestamp time.Time
	Host      string
	Kind      string // "open", "close", "execute", "error"
	Command   string
	Detail    string
}

// Sink persists Events to a gorm-backed store.
type Sink struct {
	db *gorm.DB
}

// Open connects to a sqlite or postgres DSN, selected by typ, and migrates
// the Event table.
func Open(typ, dsn string) (*Sink, error) {
	var dialector gorm.Dialector
	switch typ {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("audit: unsupported database type %q (must be sqlite or postgres)", typ)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("audit: opening %s store: %w", typ, err)
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("audit: migrating schema: %w", err)
	}
	return &Sink{db: db}, nil
}

func (s *Sink) record(host, kind, command, detail string) error {
	return s.db.Create(&Event{
		Timestamp: time.Now(),
		Host:      host,
		Kind:      kind,
		Command:   command,
		Detail:    detail,
	}).Error
}

// RecordOpen logs a successful session open against host.
func (s *Sink) RecordOpen(host string) error { return s.record(host, "open", "", "") }

// RecordClose logs a session close against host.
func (s *Sink) RecordClose(host string) error { return s.record(host, "close", "", "") }

// RecordExecute logs a command execution outcome; err is nil on success.
func (s *Sink) RecordExecute(host string, cmd ipmigo.Command, err error) error {
	if err != nil {
		return s.record(host, "error", cmd.Name(), err.Error())
	}
	return s.record(host, "execute", cmd.Name(), "")
}

// Recent returns the n most recent events for host, newest first.
func (s *Sink) Recent(host string, n int) ([]Event, error) {
	var events []Event
	err := s.db.Where("host = ?", host).Order("timestamp desc").Limit(n).Find(&events).Error
	return events, err
}

// Close releases the underlying database connection.
func (s *Sink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
