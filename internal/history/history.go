// Package history keeps past evaluations in SQLite. It serves as an evidence
// source (notations accepted before) and as a sink for completed reports.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/schema"
)

const ddl = `
CREATE TABLE IF NOT EXISTS evaluations (
	id            TEXT PRIMARY KEY,
	source_text   TEXT NOT NULL,
	direction     TEXT NOT NULL,
	category      TEXT NOT NULL,
	notation      TEXT NOT NULL,
	overall_score INTEGER NOT NULL,
	verdict       TEXT NOT NULL,
	passed        INTEGER NOT NULL,
	report_json   TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS evaluations_source ON evaluations (source_text, created_at);
`

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is one stored evaluation.
type Record struct {
	ID           string                  `json:"id"`
	SourceText   string                  `json:"source_text"`
	Direction    schema.Direction        `json:"direction"`
	Category     schema.Category         `json:"category"`
	Notation     string                  `json:"candidate_notation"`
	OverallScore int                     `json:"overall_score"`
	Verdict      schema.Verdict          `json:"verdict"`
	Passed       bool                    `json:"passed"`
	Report       schema.ComplianceReport `json:"report"`
	CreatedAt    time.Time               `json:"created_at"`
}

// Store manages evaluation history in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	// One writer at a time; batch workers share the handle.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	logger.Debug("history store opened", "path", path)
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Name identifies the store as an evidence source.
func (s *Store) Name() string { return catalogue.SourceHistory }

// Record stores a completed report.
func (s *Store) Record(ctx context.Context, r schema.ComplianceReport) error {
	_, err := s.Save(ctx, r)
	return err
}

// Save stores r and returns the new record.
func (s *Store) Save(ctx context.Context, r schema.ComplianceReport) (Record, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return Record{}, fmt.Errorf("history: marshal report: %w", err)
	}
	rec := Record{
		ID:           uuid.NewString(),
		SourceText:   r.SourceText,
		Direction:    r.Direction,
		Category:     r.Category,
		Notation:     r.Notation,
		OverallScore: r.OverallScore,
		Verdict:      r.Verdict,
		Passed:       r.Passed,
		Report:       r,
		CreatedAt:    s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, source_text, direction, category, notation, overall_score, verdict, passed, report_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SourceText, string(rec.Direction), string(rec.Category), rec.Notation,
		rec.OverallScore, string(rec.Verdict), boolInt(rec.Passed), string(body),
		rec.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return Record{}, fmt.Errorf("history: insert evaluation: %w", err)
	}
	return rec, nil
}

// Lookup returns the distinct notations that passed for source, newest
// first, as evidence from the history source. Positions are 1-based in that
// order.
func (s *Store) Lookup(ctx context.Context, source string) ([]schema.EvidenceItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT notation, MAX(created_at) AS last
		 FROM evaluations
		 WHERE source_text = ? AND passed = 1
		 GROUP BY notation
		 ORDER BY last DESC, notation`,
		source,
	)
	if err != nil {
		return nil, fmt.Errorf("history: lookup %q: %w", source, err)
	}
	defer rows.Close()

	var out []schema.EvidenceItem
	for rows.Next() {
		var notation, last string
		if err := rows.Scan(&notation, &last); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, schema.EvidenceItem{
			SourceID: catalogue.SourceHistory,
			Position: len(out) + 1,
			Payload:  notation,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: lookup %q: %w", source, err)
	}
	return out, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_text, direction, category, notation, overall_score, verdict, passed, report_json, created_at
		 FROM evaluations
		 ORDER BY created_at DESC, id
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	return out, nil
}

// Get returns the record with id, or sql.ErrNoRows wrapped.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_text, direction, category, notation, overall_score, verdict, passed, report_json, created_at
		 FROM evaluations WHERE id = ?`,
		id,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return Record{}, fmt.Errorf("history: get %s: %w", id, err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec                          Record
		direction, category, verdict string
		passed                       int
		body, created                string
	)
	if err := sc.Scan(&rec.ID, &rec.SourceText, &direction, &category, &rec.Notation,
		&rec.OverallScore, &verdict, &passed, &body, &created); err != nil {
		return Record{}, err
	}
	rec.Direction = schema.Direction(direction)
	rec.Category = schema.Category(category)
	rec.Verdict = schema.Verdict(verdict)
	rec.Passed = passed == 1
	if err := json.Unmarshal([]byte(body), &rec.Report); err != nil {
		return Record{}, fmt.Errorf("history: decode report %s: %w", rec.ID, err)
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Record{}, fmt.Errorf("history: parse created_at %s: %w", rec.ID, err)
	}
	rec.CreatedAt = t
	return rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
