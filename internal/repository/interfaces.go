package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lncpro/rosteraudit/internal/domain"
)

var (
	// ErrNotFound is returned when a named document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrIncompleteCache is returned when a persisted license cache holds
	// fewer records than its own count column claims. A truncated write
	// must never be served as if it were the full directory.
	ErrIncompleteCache = errors.New("license cache is incomplete")
)

// SessionInfo is the listing view of a stored roster session.
type SessionInfo struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	RowCount  int       `json:"rowCount"`
}

// SessionRepository persists roster sessions as named documents.
type SessionRepository interface {
	Save(ctx context.Context, session domain.Session) error
	Load(ctx context.Context, name string) (domain.Session, error)
	List(ctx context.Context) ([]SessionInfo, error)
	Delete(ctx context.Context, name string) error
}

// ConfigRepository persists the editable rule configuration and the club
// equivalence map, each as its own named document.
type ConfigRepository interface {
	SaveRules(ctx context.Context, cfg domain.RuleConfig) error
	LoadRules(ctx context.Context) (domain.RuleConfig, error)
	SaveEquivalences(ctx context.Context, eq domain.EquivalenceMap) error
	LoadEquivalences(ctx context.Context) (domain.EquivalenceMap, error)
}

// LicenseCacheRepository persists the federation license snapshot so the
// directory survives restarts without refetching.
type LicenseCacheRepository interface {
	Save(ctx context.Context, records []domain.LicenseRecord, fetchedAt time.Time) error
	Load(ctx context.Context) ([]domain.LicenseRecord, time.Time, error)
}
