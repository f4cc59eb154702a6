package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/superodds/oddscollector/internal/pkg/config"
	"github.com/superodds/oddscollector/internal/pkg/models"
)

// Ensure PostgresStore implements EventStore
var _ EventStore = (*PostgresStore)(nil)

// PostgresStore keeps the two logical collections of the system: the raw
// per-provider snapshots and the cross-provider normalized events. Both
// payloads live in JSONB columns; the replace-upsert relies on Postgres'
// atomic single-row ON CONFLICT semantics, so no application-level
// locking is needed for distinct keys.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cfg *config.PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL event store initialized successfully")
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS events_raw (
		event_id VARCHAR(200) NOT NULL,
		source VARCHAR(100) NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL,
		match_name VARCHAR(500),
		start_time TIMESTAMPTZ,
		competition_id VARCHAR(200),
		competition_name VARCHAR(500),
		raw JSONB,
		PRIMARY KEY (event_id, source)
	);

	CREATE INDEX IF NOT EXISTS idx_events_raw_start_time ON events_raw(start_time);

	CREATE TABLE IF NOT EXISTS events_normalized (
		normalized_id VARCHAR(500) PRIMARY KEY,
		event_id VARCHAR(200),
		home VARCHAR(300),
		away VARCHAR(300),
		kickoff TIMESTAMPTZ,
		sources JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_normalized_kickoff ON events_normalized(kickoff);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// BulkReplaceRaw upserts every document keyed by (event_id, source).
// Unordered semantics: one row failing does not abort its siblings, the
// failure is logged and the rest of the batch proceeds.
func (s *PostgresStore) BulkReplaceRaw(ctx context.Context, docs []models.SlimEventDocument) (BulkResult, error) {
	var result BulkResult
	if len(docs) == 0 {
		return result, nil
	}

	query := `
	INSERT INTO events_raw (
		event_id, source, captured_at, match_name,
		start_time, competition_id, competition_name, raw
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (event_id, source) DO UPDATE SET
		captured_at = EXCLUDED.captured_at,
		match_name = EXCLUDED.match_name,
		start_time = EXCLUDED.start_time,
		competition_id = EXCLUDED.competition_id,
		competition_name = EXCLUDED.competition_name,
		raw = EXCLUDED.raw
	RETURNING (xmax = 0) AS inserted
	`

	var lastErr error
	for _, doc := range docs {
		rawJSON, err := json.Marshal(doc.Raw)
		if err != nil {
			slog.Warn("Failed to marshal raw payload, skipping document", "event_id", doc.EventID, "source", doc.Source, "error", err)
			lastErr = err
			continue
		}

		var inserted bool
		err = s.db.QueryRowContext(ctx, query,
			doc.EventID, doc.Source, doc.CapturedAt, nullString(doc.MatchName),
			nullTime(doc.StartTime), nullString(doc.CompetitionID), nullString(doc.CompetitionName), rawJSON,
		).Scan(&inserted)
		if err != nil {
			slog.Warn("Failed to upsert raw event", "event_id", doc.EventID, "source", doc.Source, "error", err)
			lastErr = err
			continue
		}
		if inserted {
			result.Upserted++
		} else {
			result.Modified++
		}
	}

	if result.Upserted == 0 && result.Modified == 0 && lastErr != nil {
		return result, fmt.Errorf("failed to upsert raw events: %w", lastErr)
	}
	return result, nil
}

// FindNormalizedByIDs loads existing normalized documents for a set of
// keys in a single query.
func (s *PostgresStore) FindNormalizedByIDs(ctx context.Context, ids []string) (map[string]models.NormalizedEvent, error) {
	existing := make(map[string]models.NormalizedEvent)
	if len(ids) == 0 {
		return existing, nil
	}

	query := `
	SELECT normalized_id, event_id, home, away, kickoff, sources, created_at, updated_at
	FROM events_normalized
	WHERE normalized_id = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query normalized events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			doc         models.NormalizedEvent
			eventID     sql.NullString
			home        sql.NullString
			away        sql.NullString
			kickoff     sql.NullTime
			sourcesJSON []byte
		)
		if err := rows.Scan(&doc.NormalizedID, &eventID, &home, &away, &kickoff, &sourcesJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan normalized event: %w", err)
		}
		doc.EventID = eventID.String
		doc.Home = home.String
		doc.Away = away.String
		if kickoff.Valid {
			doc.Kickoff = kickoff.Time
		}
		if len(sourcesJSON) > 0 {
			if err := json.Unmarshal(sourcesJSON, &doc.Sources); err != nil {
				slog.Warn("Failed to decode sources for normalized event", "normalized_id", doc.NormalizedID, "error", err)
			}
		}
		existing[doc.NormalizedID] = doc
	}
	return existing, rows.Err()
}

// BulkReplaceNormalized writes merged documents with one replace-upsert
// per key. Same unordered semantics as BulkReplaceRaw.
func (s *PostgresStore) BulkReplaceNormalized(ctx context.Context, docs []models.NormalizedEvent) (BulkResult, error) {
	var result BulkResult
	if len(docs) == 0 {
		return result, nil
	}

	query := `
	INSERT INTO events_normalized (
		normalized_id, event_id, home, away, kickoff, sources, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (normalized_id) DO UPDATE SET
		event_id = EXCLUDED.event_id,
		home = EXCLUDED.home,
		away = EXCLUDED.away,
		kickoff = EXCLUDED.kickoff,
		sources = EXCLUDED.sources,
		created_at = EXCLUDED.created_at,
		updated_at = EXCLUDED.updated_at
	RETURNING (xmax = 0) AS inserted
	`

	var lastErr error
	for _, doc := range docs {
		key := doc.Key()
		if key == "" {
			slog.Warn("Normalized event without a key, skipping")
			continue
		}
		sourcesJSON, err := json.Marshal(doc.Sources)
		if err != nil {
			slog.Warn("Failed to marshal sources, skipping document", "normalized_id", key, "error", err)
			lastErr = err
			continue
		}

		var inserted bool
		err = s.db.QueryRowContext(ctx, query,
			key, nullString(doc.EventID), nullString(doc.Home), nullString(doc.Away),
			nullTime(doc.Kickoff), sourcesJSON, doc.CreatedAt, doc.UpdatedAt,
		).Scan(&inserted)
		if err != nil {
			slog.Warn("Failed to upsert normalized event", "normalized_id", key, "error", err)
			lastErr = err
			continue
		}
		if inserted {
			result.Upserted++
		} else {
			result.Modified++
		}
	}

	if result.Upserted == 0 && result.Modified == 0 && lastErr != nil {
		return result, fmt.Errorf("failed to upsert normalized events: %w", lastErr)
	}
	return result, nil
}

// DeleteStartedBefore removes documents for events that kicked off before
// cutoff from both collections.
func (s *PostgresStore) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64

	res, err := s.db.ExecContext(ctx, `DELETE FROM events_raw WHERE start_time < $1`, cutoff)
	if err != nil {
		return total, fmt.Errorf("failed to clean events_raw: %w", err)
	}
	rows, _ := res.RowsAffected()
	total += rows

	res, err = s.db.ExecContext(ctx, `DELETE FROM events_normalized WHERE kickoff < $1`, cutoff)
	if err != nil {
		return total, fmt.Errorf("failed to clean events_normalized: %w", err)
	}
	rows, _ = res.RowsAffected()
	total += rows

	if total > 0 {
		slog.Info("Cleaned documents for started events", "rows_deleted", total, "cutoff", cutoff)
	}
	return total, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
