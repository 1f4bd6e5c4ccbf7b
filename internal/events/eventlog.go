// Package events is an append-only audit log for attempt lifecycle changes.
// Appends are best-effort: a failed audit write is logged and never blocks
// the mutation that produced it.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"
)

type Log struct {
	db *sql.DB
}

func NewLog(db *sql.DB) *Log { return &Log{db: db} }

func (l *Log) Record(ctx context.Context, typ, key string, data interface{}) {
	payload := []byte("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, string(payload), time.Now().Unix())
	if err != nil {
		log.Printf("event log append failed (typ=%s key=%s): %v", typ, key, err)
	}
}
