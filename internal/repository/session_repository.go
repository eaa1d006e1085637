package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lncpro/rosteraudit/internal/domain"
)

// sessionRepository stores each roster session as one jsonb document row
// in the inscripciones table, keyed by session name.
type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a session repository over a pgx pool.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) Save(ctx context.Context, session domain.Session) error {
	data, err := json.Marshal(session.Rows)
	if err != nil {
		return fmt.Errorf("marshal session rows: %w", err)
	}
	columns, err := json.Marshal(session.Columns)
	if err != nil {
		return fmt.Errorf("marshal session columns: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO inscripciones (name, timestamp, data, columns)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET timestamp = EXCLUDED.timestamp,
		    data = EXCLUDED.data,
		    columns = EXCLUDED.columns`,
		session.Name, session.Timestamp, data, columns)
	if err != nil {
		return fmt.Errorf("save session %q: %w", session.Name, err)
	}
	return nil
}

func (r *sessionRepository) Load(ctx context.Context, name string) (domain.Session, error) {
	session := domain.Session{Name: name}

	var data, columns []byte
	err := r.pool.QueryRow(ctx,
		`SELECT timestamp, data, columns FROM inscripciones WHERE name = $1`,
		name).Scan(&session.Timestamp, &data, &columns)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("load session %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session %q: %w", name, err)
	}

	if err := json.Unmarshal(data, &session.Rows); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session rows: %w", err)
	}
	if len(columns) > 0 {
		if err := json.Unmarshal(columns, &session.Columns); err != nil {
			return domain.Session{}, fmt.Errorf("unmarshal session columns: %w", err)
		}
	}
	return session, nil
}

func (r *sessionRepository) List(ctx context.Context) ([]SessionInfo, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, timestamp, jsonb_array_length(data)
		FROM inscripciones
		ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.Name, &info.Timestamp, &info.RowCount); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return infos, nil
}

func (r *sessionRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM inscripciones WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete session %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete session %q: %w", name, ErrNotFound)
	}
	return nil
}
