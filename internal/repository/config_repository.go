package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lncpro/rosteraudit/internal/domain"
)

// Document names within the config table. Each named row holds one
// independently editable jsonb document.
const (
	rulesDocument        = "reglas_competicion"
	equivalencesDocument = "equivalencias_clubes"
)

type configRepository struct {
	pool *pgxpool.Pool
}

// NewConfigRepository creates a config repository over a pgx pool.
func NewConfigRepository(pool *pgxpool.Pool) ConfigRepository {
	return &configRepository{pool: pool}
}

func (r *configRepository) SaveRules(ctx context.Context, cfg domain.RuleConfig) error {
	return r.saveDocument(ctx, rulesDocument, cfg)
}

func (r *configRepository) LoadRules(ctx context.Context) (domain.RuleConfig, error) {
	var cfg domain.RuleConfig
	if err := r.loadDocument(ctx, rulesDocument, &cfg); err != nil {
		return domain.RuleConfig{}, err
	}
	return cfg, nil
}

func (r *configRepository) SaveEquivalences(ctx context.Context, eq domain.EquivalenceMap) error {
	return r.saveDocument(ctx, equivalencesDocument, eq)
}

func (r *configRepository) LoadEquivalences(ctx context.Context) (domain.EquivalenceMap, error) {
	var eq domain.EquivalenceMap
	if err := r.loadDocument(ctx, equivalencesDocument, &eq); err != nil {
		return nil, err
	}
	return eq, nil
}

func (r *configRepository) saveDocument(ctx context.Context, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal config %q: %w", name, err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO config (name, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET data = EXCLUDED.data,
		    updated_at = EXCLUDED.updated_at`,
		name, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save config %q: %w", name, err)
	}
	return nil
}

func (r *configRepository) loadDocument(ctx context.Context, name string, out any) error {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM config WHERE name = $1`, name).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("load config %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load config %q: %w", name, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal config %q: %w", name, err)
	}
	return nil
}
