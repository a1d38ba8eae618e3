package storage

import (
	"bytes"
	"compress/zlib"
	"context"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/raphi011/pinpoint/internal/model"
)

//go:embed migrations/*.sql
var fs embed.FS

type Storage struct {
	db  *sqlx.DB
	log *slog.Logger
}

// New opens the sqlite database dbFilename and migrates it to the latest schema.
// An empty filename opens a private in-memory database.
func New(dbFilename string, log *slog.Logger) (*Storage, error) {
	db, err := sqlx.Connect("sqlite", connectionString(dbFilename))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	row := db.QueryRow("select sqlite_version()")

	var version string
	err = row.Scan(&version)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to retrieve sqlite version: %w", err)
	}

	log.Info("Using sqlite version: " + version)

	s := &Storage{
		db:  db,
		log: log,
	}

	if err = s.migrateDB(db); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func connectionString(filename string) string {
	var cs string
	var options = []string{"_pragma=busy_timeout(5000)", "_pragma=journal_mode(WAL)", "_pragma=foreign_keys(1)", "_pragma=synchronous(normal)"}

	if filename != "" {
		cs = filename
	} else {
		// every in-memory database gets its own name so they are not shared
		// between storages of the same process
		cs = "file:" + uuid.NewString()
		options = append(options, "mode=memory", "cache=shared")
	}

	for i, o := range options {
		if i == 0 {
			cs += "?"
		} else {
			cs += "&"
		}
		cs += o
	}

	return cs
}

func (s *Storage) migrateDB(db *sqlx.DB) error {
	d, err := iofs.New(fs, "migrations")
	if err != nil {
		return fmt.Errorf("load db migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("load migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrate with instance: %w", err)
	}

	err = m.Up()

	if err == migrate.ErrNoChange {
		s.log.Info("No migrations have been applied. The DB is at the latest state.")
	} else if err != nil {
		return fmt.Errorf("applying db migrations: %w", err)
	}

	return nil
}

// SaveResult inserts a new run record.
func (s *Storage) SaveResult(ctx context.Context, r model.RunRecord) error {
	logs, err := compressedLogs(r.Logs)
	if err != nil {
		return fmt.Errorf("unable to compress logs: %w", err)
	}

	_, err = s.db.NamedExecContext(ctx, `INSERT INTO RunRecord
	(id, className, methodName, triggeredBy, status, message, compressedLogs, startTime, endTime) VALUES
	(:id, :className, :methodName, :triggeredBy, :status, :message, :logs, :startTime, :endTime)`,
		map[string]any{
			"id":          r.ID,
			"className":   r.Test.Class,
			"methodName":  r.Test.Method,
			"triggeredBy": r.TriggeredBy,
			"status":      r.Status,
			"message":     r.Message,
			"logs":        logs,
			"startTime":   timeFormat(r.Start),
			"endTime":     timeFormat(r.End),
		})
	if err != nil {
		return fmt.Errorf("inserting run record %s: %w", r.ID, err)
	}

	return nil
}

// UpdateResult stores the outcome of an existing run record.
func (s *Storage) UpdateResult(ctx context.Context, r model.RunRecord) error {
	logs, err := compressedLogs(r.Logs)
	if err != nil {
		return fmt.Errorf("unable to compress logs: %w", err)
	}

	res, err := s.db.NamedExecContext(ctx, `UPDATE RunRecord SET
	status=:status, message=:message, compressedLogs=:logs, startTime=:startTime, endTime=:endTime
	WHERE id=:id`,
		map[string]any{
			"id":        r.ID,
			"status":    r.Status,
			"message":   r.Message,
			"logs":      logs,
			"startTime": timeFormat(r.Start),
			"endTime":   timeFormat(r.End),
		})
	if err != nil {
		return fmt.Errorf("update statement failed: %w", err)
	}

	if affected, _ := res.RowsAffected(); affected != 1 {
		return model.NotFoundError{Kind: "run", Name: r.ID}
	}

	return nil
}

// LoadResults returns the stored runs of a test method, newest first.
func (s *Storage) LoadResults(ctx context.Context, d model.Description) ([]model.RunRecord, error) {
	records := []model.RunRecord{}

	r, err := s.db.NamedQueryContext(ctx, `SELECT
		id, className, methodName, triggeredBy, status, message, compressedLogs, startTime, endTime
		FROM RunRecord WHERE className=:className and methodName=:methodName
		ORDER BY startTime DESC`,
		map[string]any{
			"className":  d.Class,
			"methodName": d.Method,
		},
	)
	if err != nil {
		return records, err
	}
	defer r.Close()

	for r.Next() {
		rec, err := scanRunRecord(r)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, r.Err()
}

func (s *Storage) LoadRun(ctx context.Context, runID string) (model.RunRecord, error) {
	r, err := s.db.NamedQueryContext(ctx, `SELECT
		id, className, methodName, triggeredBy, status, message, compressedLogs, startTime, endTime
		FROM RunRecord WHERE id=:id`,
		map[string]any{"id": runID},
	)
	if err != nil {
		return model.RunRecord{}, err
	}
	defer r.Close()

	if !r.Next() {
		return model.RunRecord{}, model.NotFoundError{Kind: "run", Name: runID}
	}

	return scanRunRecord(r)
}

// timeLayout has a fixed width so stored times sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timeFormat(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseDate(t string) (time.Time, error) {
	return time.Parse(timeLayout, t)
}

func scanRunRecord(r *sqlx.Rows) (model.RunRecord, error) {
	rec := model.RunRecord{}

	var start, end string

	var logs []byte

	err := r.Scan(
		&rec.ID,
		&rec.Test.Class,
		&rec.Test.Method,
		&rec.TriggeredBy,
		&rec.Status,
		&rec.Message,
		&logs,
		&start,
		&end,
	)
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("scanning run record: %w", err)
	}

	if rec.Start, err = parseDate(start); err != nil {
		return model.RunRecord{}, fmt.Errorf("parsing start time: %w", err)
	}
	if rec.End, err = parseDate(end); err != nil {
		return model.RunRecord{}, fmt.Errorf("parsing end time: %w", err)
	}

	rec.Logs, err = decompressLogs(logs)
	if err != nil {
		return model.RunRecord{}, err
	}

	if rec.Finished() {
		rec.DurationInMS = rec.End.Sub(rec.Start).Milliseconds()
	}

	return rec, nil
}

func compressedLogs(logs string) ([]byte, error) {
	var compressedLogs bytes.Buffer

	w := zlib.NewWriter(&compressedLogs)

	if _, err := w.Write([]byte(logs)); err != nil {
		w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return compressedLogs.Bytes(), nil
}

func decompressLogs(l []byte) (string, error) {
	if len(l) == 0 {
		return "", nil
	}

	reader, err := zlib.NewReader(bytes.NewReader(l))
	if err != nil {
		return "", fmt.Errorf("decompress logs: %w", err)
	}
	defer reader.Close()

	logs, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("decompress logs: %w", err)
	}

	return string(logs), nil
}
