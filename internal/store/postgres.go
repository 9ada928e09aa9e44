package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/spigell/mentor-matcher/internal/explain"
	"github.com/spigell/mentor-matcher/internal/similarity"
)

type PostgresConfig struct {
	DSN            string `mapstructure:"dsn"`
	MaxConnections int    `mapstructure:"max_connections"`
}

const schema = `
CREATE TABLE IF NOT EXISTS match_explanations (
	cohort_id   TEXT NOT NULL,
	mentee_id   TEXT NOT NULL,
	mentor_id   TEXT NOT NULL,
	text        TEXT NOT NULL,
	model       TEXT NOT NULL,
	total_score DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (cohort_id, mentee_id, mentor_id)
);
CREATE TABLE IF NOT EXISTS profile_embeddings (
	cohort_id      TEXT NOT NULL,
	participant_id TEXT NOT NULL,
	model          TEXT NOT NULL,
	content_hash   TEXT NOT NULL,
	vector         JSONB NOT NULL,
	PRIMARY KEY (cohort_id, participant_id, model)
);`

const (
	selectExplanationSQL = `SELECT text, model, total_score, created_at FROM match_explanations WHERE cohort_id = $1 AND mentee_id = $2 AND mentor_id = $3`
	insertExplanationSQL = `INSERT INTO match_explanations (cohort_id, mentee_id, mentor_id, text, model, total_score, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (cohort_id, mentee_id, mentor_id) DO NOTHING RETURNING text, model, total_score, created_at`
	selectEmbeddingsSQL  = `SELECT participant_id, content_hash, vector FROM profile_embeddings WHERE cohort_id = $1 AND model = $2 AND participant_id = ANY($3)`
	upsertEmbeddingSQL   = `INSERT INTO profile_embeddings (cohort_id, participant_id, model, content_hash, vector) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (cohort_id, participant_id, model) DO UPDATE SET content_hash = EXCLUDED.content_hash, vector = EXCLUDED.vector`
)

// Postgres keeps explanations next to the cohort data. Inserts use ON CONFLICT DO NOTHING,
// so the first stored explanation for a pair wins.
type Postgres struct {
	db *sql.DB
}

func OpenPostgres(cfg PostgresConfig) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return NewPostgres(db), nil
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the tables when they are missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Get(ctx context.Context, key explain.Key) (explain.Entry, bool, error) {
	var entry explain.Entry
	err := p.db.QueryRowContext(ctx, selectExplanationSQL, key.CohortID, key.MenteeID, key.MentorID).
		Scan(&entry.Text, &entry.Model, &entry.TotalScore, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return explain.Entry{}, false, nil
	}
	if err != nil {
		return explain.Entry{}, false, fmt.Errorf("get explanation %s: %w", key, err)
	}
	return entry, true, nil
}

func (p *Postgres) Put(ctx context.Context, key explain.Key, entry explain.Entry) (explain.Entry, error) {
	var stored explain.Entry
	err := p.db.QueryRowContext(ctx, insertExplanationSQL,
		key.CohortID, key.MenteeID, key.MentorID,
		entry.Text, entry.Model, entry.TotalScore, entry.CreatedAt,
	).Scan(&stored.Text, &stored.Model, &stored.TotalScore, &stored.CreatedAt)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return explain.Entry{}, fmt.Errorf("store explanation %s: %w", key, err)
	}

	// conflict: somebody else stored it first.
	existing, ok, err := p.Get(ctx, key)
	if err != nil {
		return explain.Entry{}, err
	}
	if !ok {
		return explain.Entry{}, fmt.Errorf("store explanation %s: row vanished after conflict", key)
	}
	return existing, nil
}

type embeddingScope struct {
	cohortID string
	model    string
}

func (p *Postgres) GetEmbeddings(ctx context.Context, keys []similarity.EmbeddingKey) (map[similarity.EmbeddingKey]similarity.CachedEmbedding, error) {
	out := make(map[similarity.EmbeddingKey]similarity.CachedEmbedding, len(keys))

	grouped := map[embeddingScope][]string{}
	var scopes []embeddingScope
	for _, k := range keys {
		scope := embeddingScope{cohortID: k.CohortID, model: k.Model}
		if _, ok := grouped[scope]; !ok {
			scopes = append(scopes, scope)
		}
		grouped[scope] = append(grouped[scope], k.ParticipantID)
	}

	for _, scope := range scopes {
		if err := p.loadEmbeddings(ctx, scope, grouped[scope], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Postgres) loadEmbeddings(ctx context.Context, scope embeddingScope, ids []string, out map[similarity.EmbeddingKey]similarity.CachedEmbedding) error {
	rows, err := p.db.QueryContext(ctx, selectEmbeddingsSQL, scope.cohortID, scope.model, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			entry similarity.CachedEmbedding
			raw   []byte
		)
		if err := rows.Scan(&id, &entry.ContentHash, &raw); err != nil {
			return fmt.Errorf("scan embedding: %w", err)
		}
		if err := json.Unmarshal(raw, &entry.Vector); err != nil {
			continue
		}
		out[similarity.EmbeddingKey{CohortID: scope.cohortID, ParticipantID: id, Model: scope.model}] = entry
	}
	return rows.Err()
}

func (p *Postgres) PutEmbeddings(ctx context.Context, entries map[similarity.EmbeddingKey]similarity.CachedEmbedding) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for k, v := range entries {
		vector, err := json.Marshal(v.Vector)
		if err != nil {
			return fmt.Errorf("encode embedding %s: %w", k.ParticipantID, err)
		}
		if _, err := tx.ExecContext(ctx, upsertEmbeddingSQL, k.CohortID, k.ParticipantID, k.Model, v.ContentHash, vector); err != nil {
			return fmt.Errorf("store embedding %s: %w", k.ParticipantID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
