package events

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/task"
)

const timeLayout = time.RFC3339Nano

// Journal persists lifecycle events in SQLite so a task's history survives
// a supervisor restart.
type Journal struct {
	db     *sql.DB
	dbPath string
	log    *logger.Logger
}

// OpenJournal opens (or creates) the journal database at dbPath.
func OpenJournal(dbPath string, log *logger.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// Publish is called from several goroutines; one connection keeps
	// sqlite from reporting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if log == nil {
		log = logger.Global()
	}
	j := &Journal{db: db, dbPath: dbPath, log: log.WithPrefix("journal")}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS task_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_task_events_task_id ON task_events(task_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Path returns the database file.
func (j *Journal) Path() string {
	return j.dbPath
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores e.
func (j *Journal) Record(e Event) error {
	_, err := j.db.Exec(
		`INSERT INTO task_events (task_id, type, status, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.TaskID, string(e.Type), string(e.Status), e.Detail, e.Time.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", e.Type, err)
	}
	return nil
}

// Publish implements Sink. Storage failures are logged, not returned.
func (j *Journal) Publish(e Event) {
	if err := j.Record(e); err != nil {
		j.log.Warn("%v", err)
	}
}

// Events returns the history of taskID, oldest first.
func (j *Journal) Events(taskID string) ([]Event, error) {
	rows, err := j.db.Query(
		`SELECT task_id, type, status, detail, created_at FROM task_events WHERE task_id = ? ORDER BY id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var (
			e               Event
			typ, status, ts string
		)
		if err := rows.Scan(&e.TaskID, &typ, &status, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = Type(typ)
		e.Status = task.State(status)
		if e.Time, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("failed to parse event time %q: %w", ts, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
