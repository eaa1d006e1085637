package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/lncpro/rosteraudit/internal/domain"
	"github.com/lncpro/rosteraudit/internal/ingestion"
	"github.com/lncpro/rosteraudit/internal/licenses"
	"github.com/lncpro/rosteraudit/internal/reconcile"
	"github.com/lncpro/rosteraudit/internal/repository"
	"github.com/lncpro/rosteraudit/internal/rules"
)

// TeamReview pairs a team's compliance report with the configuration
// error that prevented evaluation, when there was one.
type TeamReview struct {
	Report      domain.ComplianceReport `json:"report"`
	ConfigError string                  `json:"configError,omitempty"`
}

// Review is the full audit of one stored session: every roster row with
// freshly computed status flags plus one verdict per team.
type Review struct {
	Session       string             `json:"session"`
	GeneratedAt   time.Time          `json:"generatedAt"`
	StaleLicenses bool               `json:"staleLicenses"`
	LicenseCount  int                `json:"licenseCount"`
	Rows          []domain.PlayerRow `json:"rows"`
	Teams         []TeamReview       `json:"teams"`
}

// Service orchestrates the audit workflow: sessions in, reviews out.
// Derived state (row flags, team verdicts, category lookups) is always
// recomputed from current data, never read back from storage.
type Service struct {
	sessions   repository.SessionRepository
	configs    repository.ConfigRepository
	cache      repository.LicenseCacheRepository
	directory  *licenses.Directory
	engine     *rules.Engine
	reconciler *reconcile.Service

	fuzzyThreshold float64
	maxCacheAge    time.Duration
}

// NewService wires the audit service.
func NewService(
	sessions repository.SessionRepository,
	configs repository.ConfigRepository,
	cache repository.LicenseCacheRepository,
	directory *licenses.Directory,
	fuzzyThreshold float64,
	maxCacheAge time.Duration,
) *Service {
	if fuzzyThreshold <= 0 || fuzzyThreshold > 1 {
		fuzzyThreshold = domain.DefaultFuzzyThreshold
	}
	return &Service{
		sessions:       sessions,
		configs:        configs,
		cache:          cache,
		directory:      directory,
		engine:         rules.NewEngine(),
		reconciler:     reconcile.NewService(directory),
		fuzzyThreshold: fuzzyThreshold,
		maxCacheAge:    maxCacheAge,
	}
}

// LoadLicenses warms the in-memory license directory from the persisted
// cache. A missing cache is not an error: the directory starts empty and
// every row shows up as unverified until a license file is imported.
func (s *Service) LoadLicenses(ctx context.Context) error {
	records, fetchedAt, err := s.cache.Load(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		log.Println("[audit] no license cache found, directory starts empty")
		return nil
	}
	if errors.Is(err, repository.ErrIncompleteCache) {
		log.Printf("[audit] discarding license cache: %v", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load license cache: %w", err)
	}

	s.directory.Refresh(records, fetchedAt)
	log.Printf("[audit] license directory loaded: %d records from %s", len(records), fetchedAt.Format(time.RFC3339))
	return nil
}

// ImportLicenseCSV replaces the license directory with the contents of a
// federation license export and persists the new snapshot.
func (s *Service) ImportLicenseCSV(ctx context.Context, r io.Reader) (int, error) {
	now := time.Now().UTC()
	records, err := licenses.ImportCSV(r, now)
	if err != nil {
		return 0, fmt.Errorf("import license csv: %w", err)
	}

	s.directory.Refresh(records, now)
	if err := s.cache.Save(ctx, records, now); err != nil {
		return 0, fmt.Errorf("persist license cache: %w", err)
	}

	log.Printf("[audit] license directory refreshed: %d records", len(records))
	return len(records), nil
}

// Review audits one stored session against the current rule
// configuration. Row flags and team verdicts are rebuilt from scratch on
// every call.
func (s *Service) Review(ctx context.Context, sessionName string) (Review, error) {
	session, err := s.sessions.Load(ctx, sessionName)
	if err != nil {
		return Review{}, err
	}

	cfg, resolver, err := s.loadRuleContext(ctx)
	if err != nil {
		return Review{}, err
	}

	annotated := s.annotate(session)

	review := Review{
		Session:       session.Name,
		GeneratedAt:   time.Now().UTC(),
		StaleLicenses: s.directory.IsStale(s.maxCacheAge),
		LicenseCount:  s.directory.Len(),
		Rows:          annotated.Rows,
	}

	for _, roster := range annotated.Rosters() {
		ruleSet, category, ok := cfg.RuleSetFor(roster.Team)
		if !ok {
			review.Teams = append(review.Teams, TeamReview{
				Report: domain.ComplianceReport{Team: roster.Team, Category: category},
				ConfigError: (&domain.ConfigurationError{
					Team:     roster.Team,
					Category: category,
					Reason:   "no ruleset defined for category",
				}).Error(),
			})
			continue
		}

		report, err := s.engine.Evaluate(roster, ruleSet, category, resolver)
		if err != nil {
			var cfgErr *domain.ConfigurationError
			if errors.As(err, &cfgErr) {
				review.Teams = append(review.Teams, TeamReview{
					Report:      domain.ComplianceReport{Team: roster.Team, Category: category},
					ConfigError: cfgErr.Error(),
				})
				continue
			}
			return Review{}, fmt.Errorf("evaluate team %q: %w", roster.Team, err)
		}
		review.Teams = append(review.Teams, TeamReview{Report: report})
	}

	return review, nil
}

// ApplyManual applies reviewer edits to a stored session and persists the
// result with freshly recomputed row flags.
func (s *Service) ApplyManual(ctx context.Context, sessionName string, inputs []reconcile.RowInput) ([]reconcile.Outcome, error) {
	session, err := s.sessions.Load(ctx, sessionName)
	if err != nil {
		return nil, err
	}

	roster := domain.Roster{Rows: session.Rows}
	roster, outcomes := s.reconciler.ApplyBatch(roster, inputs)
	session.Rows = roster.Rows
	session.Timestamp = time.Now().UTC()

	session = s.annotate(session)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	for _, outcome := range outcomes {
		log.Printf("[audit] session %q: %s %s", sessionName, outcome.Action, outcome.Identity)
	}
	return outcomes, nil
}

// ImportRoster merges a parsed roster upload into the named session,
// creating the session when it does not exist yet. The returned log is
// the human readable merge summary.
func (s *Service) ImportRoster(ctx context.Context, sessionName string, result ingestion.Result) ([]string, error) {
	session, err := s.sessions.Load(ctx, sessionName)
	if errors.Is(err, repository.ErrNotFound) {
		session = domain.Session{Name: sessionName}
	} else if err != nil {
		return nil, err
	}

	roster := domain.Roster{Rows: session.Rows}
	roster, mergeLog := s.reconciler.Merge(roster, result.Rows)
	session.Rows = roster.Rows
	session.Timestamp = time.Now().UTC()
	if len(session.Columns) == 0 {
		session.Columns = result.Columns
	}

	session = s.annotate(session)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	log.Printf("[audit] session %q: imported %d rows (%d skipped)", sessionName, result.Summary.ParsedRows, result.Summary.SkippedRows)
	return mergeLog, nil
}

// BackfillSession completes placeholder rows in a stored session from the
// license directory and persists the result. The returned log lists the
// identities whose data was recovered.
func (s *Service) BackfillSession(ctx context.Context, sessionName string) ([]string, error) {
	session, err := s.sessions.Load(ctx, sessionName)
	if err != nil {
		return nil, err
	}

	roster := domain.Roster{Rows: session.Rows}
	roster, logs := s.reconciler.BackfillFromDirectory(roster)
	if len(logs) == 0 {
		return logs, nil
	}
	session.Rows = roster.Rows
	session.Timestamp = time.Now().UTC()

	session = s.annotate(session)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	log.Printf("[audit] session %q: backfilled %d rows from license directory", sessionName, len(logs))
	return logs, nil
}

// Sessions lists the stored sessions, newest first.
func (s *Service) Sessions(ctx context.Context) ([]repository.SessionInfo, error) {
	return s.sessions.List(ctx)
}

// Session returns one stored session with freshly computed row flags.
func (s *Service) Session(ctx context.Context, name string) (domain.Session, error) {
	session, err := s.sessions.Load(ctx, name)
	if err != nil {
		return domain.Session{}, err
	}
	return s.annotate(session), nil
}

// DeleteSession removes a stored session.
func (s *Service) DeleteSession(ctx context.Context, name string) error {
	return s.sessions.Delete(ctx, name)
}

// Rules returns the stored rule configuration. A missing document yields
// an empty configuration: teams stay unassigned until the reviewer saves
// one.
func (s *Service) Rules(ctx context.Context) (domain.RuleConfig, error) {
	cfg, err := s.configs.LoadRules(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.RuleConfig{}, nil
	}
	return cfg, err
}

// SaveRules validates and persists the rule configuration.
func (s *Service) SaveRules(ctx context.Context, cfg domain.RuleConfig) error {
	for category, ruleSet := range cfg.Rules {
		if err := ruleSet.Validate(); err != nil {
			return fmt.Errorf("category %q: %w", category, err)
		}
	}
	return s.configs.SaveRules(ctx, cfg)
}

// Equivalences returns the stored club equivalence map (may be empty).
func (s *Service) Equivalences(ctx context.Context) (domain.EquivalenceMap, error) {
	eq, err := s.configs.LoadEquivalences(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.EquivalenceMap{}, nil
	}
	return eq, err
}

// SaveEquivalences persists the club equivalence map.
func (s *Service) SaveEquivalences(ctx context.Context, eq domain.EquivalenceMap) error {
	return s.configs.SaveEquivalences(ctx, eq)
}

// loadRuleContext loads the rule configuration and builds the club
// resolver from the stored equivalence map.
func (s *Service) loadRuleContext(ctx context.Context) (domain.RuleConfig, *domain.EquivalenceResolver, error) {
	cfg, err := s.Rules(ctx)
	if err != nil {
		return domain.RuleConfig{}, nil, err
	}
	eq, err := s.Equivalences(ctx)
	if err != nil {
		return domain.RuleConfig{}, nil, err
	}
	return cfg, domain.NewEquivalenceResolver(eq, s.fuzzyThreshold), nil
}

// annotate recomputes the status flags of every row in the session.
// Duplicate detection runs across the whole session, not per team.
func (s *Service) annotate(session domain.Session) domain.Session {
	annotated := rules.Annotate(domain.Roster{Rows: session.Rows}, s.directory)
	session.Rows = annotated.Rows
	return session
}
