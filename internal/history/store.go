// Package history keeps every successfully extracted schedule in sqlite.
package history

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"schedule-extractor/internal/assert"
	"schedule-extractor/internal/components/chrono"
	"schedule-extractor/internal/schedule"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

var ErrRunNotFound = errors.New("history: run not found")

type Store struct {
	db   *sql.DB
	time chrono.TimeAPI
}

// Open opens (and creates when needed) the history database at path,
// ":memory:" gives a throwaway database.
func Open(path string, time chrono.TimeAPI) (*Store, error) {
	assert.NotNil(time)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)

	_, err = db.Exec("pragma foreign_keys = on")
	if err != nil {
		db.Close()
		return nil, err
	}
	_, err = db.Exec(Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		db.Close()
		return nil, err
	}
	return &Store{db: db, time: time}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type Run struct {
	URL         string
	Attempts    int
	MarkupBytes int
}

type RunSummary struct {
	ID         int64
	AcquiredAt time.Time
	URL        string
	Attempts   int
	Dates      int
	Events     int
}

// SaveRun stores record along with one row per event and channel so that
// runs can be searched without decoding every record.
func (s *Store) SaveRun(ctx context.Context, run Run, record *schedule.Record) (int64, error) {
	var encoded bytes.Buffer
	err := record.WriteJSON(&encoded)
	if err != nil {
		return 0, fmt.Errorf("encode record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		`insert into run(acquired_at, url, attempts, markup_bytes, record_json) values (?, ?, ?, ?, ?)`,
		s.time.Now().Unix(), run.URL, run.Attempts, run.MarkupBytes, encoded.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runId, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, date := range record.Dates() {
		categories, _ := record.Date(date)
		for _, category := range categories.Names() {
			for idx, event := range categories.Events(category) {
				err := insertEvent(ctx, tx, runId, date, category, idx, event)
				if err != nil {
					return 0, err
				}
			}
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, err
	}
	return runId, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, runId int64, date, category string, idx int, event schedule.Event) error {
	res, err := tx.ExecContext(
		ctx,
		`insert into event(run_id, date, category, idx, time, description) values (?, ?, ?, ?, ?, ?)`,
		runId, date, category, idx, event.Time, event.Description,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	eventId, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i, channel := range event.Channels {
		_, err := tx.ExecContext(
			ctx,
			`insert into channel(event_id, idx, channel_id, name) values (?, ?, ?, ?)`,
			eventId, i, channel.Id, channel.Name,
		)
		if err != nil {
			return fmt.Errorf("insert channel: %w", err)
		}
	}
	return nil
}

// Runs lists the most recent runs first.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select
			run.id, run.acquired_at, run.url, run.attempts,
			count(distinct event.date), count(event.id)
		from run
		left join event on event.run_id = run.id
		group by run.id
		order by run.id desc
		limit ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var summary RunSummary
		var acquiredAt int64
		err := rows.Scan(
			&summary.ID, &acquiredAt, &summary.URL, &summary.Attempts,
			&summary.Dates, &summary.Events,
		)
		if err != nil {
			return nil, err
		}
		summary.AcquiredAt = time.Unix(acquiredAt, 0)
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Record returns the record stored with a run.
func (s *Store) Record(ctx context.Context, runId int64) (*schedule.Record, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, `select record_json from run where id = ?`, runId).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return schedule.ReadJSON(strings.NewReader(encoded))
}

type ChannelEvent struct {
	Date        string
	Category    string
	Time        string
	Description string
	ChannelName string
}

// EventsOnChannel lists the events of a run carried by the given channel id,
// in the order they appear in the schedule.
func (s *Store) EventsOnChannel(ctx context.Context, runId int64, channelId string) ([]ChannelEvent, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select event.date, event.category, event.time, event.description, channel.name
		from event
		inner join channel on channel.event_id = event.id
		where event.run_id = ? and channel.channel_id = ?
		order by event.id`,
		runId, channelId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChannelEvent
	for rows.Next() {
		var e ChannelEvent
		err := rows.Scan(&e.Date, &e.Category, &e.Time, &e.Description, &e.ChannelName)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
