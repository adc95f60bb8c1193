// Package stack assembles stores and services from configuration. The HTTP
// server and the CLI share it.
package stack

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/config"
	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/Harshitk-cp/thoughtgraph/internal/embedding"
	"github.com/Harshitk-cp/thoughtgraph/internal/metrics"
	"github.com/Harshitk-cp/thoughtgraph/internal/publish"
	"github.com/Harshitk-cp/thoughtgraph/internal/service"
	"github.com/Harshitk-cp/thoughtgraph/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Options struct {
	DatabaseURL       string
	MigrationsPath    string
	AliasTablePath    string
	TieBreak          string
	TypePredicate     string
	MultiValued       []string
	PredicateDomains  map[string]string
	PredicateRanges   map[string]string
	SourceTrust       map[string]float64
	TrustHalfLife     time.Duration
	ConflictMargin    float64
	GapThreshold      float64
	GapMinSupport     int
	GapMaxPerEntity   int
	LabelSimilarity   float32
	EmbeddingProvider string
	TypeCacheTTL      time.Duration
	NATSURL           string
	NATSSubject       string
}

// OptionsFromConfig reads every option from the environment.
func OptionsFromConfig() Options {
	return Options{
		DatabaseURL:       config.DatabaseURL(),
		MigrationsPath:    config.MigrationsPath(),
		AliasTablePath:    config.AliasTablePath(),
		TieBreak:          config.AliasTieBreak(),
		TypePredicate:     config.TypePredicate(),
		MultiValued:       config.MultiValuedPredicates(),
		PredicateDomains:  config.PredicateDomains(),
		PredicateRanges:   config.PredicateRanges(),
		SourceTrust:       config.SourceTrust(),
		TrustHalfLife:     config.TrustHalfLife(),
		ConflictMargin:    config.ConflictMargin(),
		GapThreshold:      config.GapThreshold(),
		GapMinSupport:     config.GapMinSupport(),
		GapMaxPerEntity:   config.GapMaxPerEntity(),
		LabelSimilarity:   config.LabelSimilarityThreshold(),
		EmbeddingProvider: config.EmbeddingProvider(),
		TypeCacheTTL:      config.TypeCacheTTL(),
		NATSURL:           config.NATSURL(),
		NATSSubject:       config.NATSSubject(),
	}
}

// Stack is a fully wired reasoning pipeline.
type Stack struct {
	GraphStore domain.GraphStore
	LabelStore domain.LabelStore
	Labels     *service.LabelService
	Thoughts   *service.ThoughtService
	Metrics    *metrics.Metrics
	Schema     domain.Schema

	pool      *pgxpool.Pool
	publisher *publish.NATSPublisher
	logger    *zap.Logger
}

// Build connects to Postgres when DatabaseURL is set and falls back to
// in-memory stores otherwise.
func Build(ctx context.Context, opts Options, logger *zap.Logger) (*Stack, error) {
	if opts.TieBreak != "" && !service.ValidTieBreak(opts.TieBreak) {
		return nil, fmt.Errorf("%w: %q", service.ErrInvalidTieBreak, opts.TieBreak)
	}
	typePredicate := domain.Identifier(opts.TypePredicate)
	if typePredicate == "" {
		typePredicate = domain.DefaultTypePredicate
	}

	s := &Stack{logger: logger}

	var labelStore domain.LabelStore
	if opts.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		logger.Info("connected to database")
		if opts.MigrationsPath != "" {
			n, err := store.Migrate(ctx, pool, opts.MigrationsPath)
			if err != nil {
				pool.Close()
				return nil, err
			}
			logger.Info("migrations applied", zap.Int("files", n))
		}
		s.pool = pool
		labelStore = store.NewLabelStore(pool)
	} else {
		logger.Info("DATABASE_URL not set, using in-memory stores")
		labelStore = store.NewMemoryLabelStore()
	}
	s.LabelStore = labelStore

	embeddingClient, err := embedding.NewClient(opts.EmbeddingProvider, embedding.DefaultDimensions)
	if err != nil {
		s.Close()
		return nil, err
	}

	aliases := service.DefaultAliasTable(typePredicate)
	rule := service.TieBreak(opts.TieBreak)
	if opts.AliasTablePath != "" {
		fromFile, err := service.LoadAliasTable(opts.AliasTablePath)
		if err != nil {
			s.Close()
			return nil, err
		}
		// A tie-break in the alias file wins over the environment.
		if fromFile.TieBreak != "" {
			rule = fromFile.TieBreak
		}
		aliases.Merge(fromFile)
	}

	labels := service.NewLabelService(service.NewNormalizer(rule), logger)
	labels.SetLabelStore(labelStore)
	if embeddingClient != nil {
		labels.SetEmbeddingClient(embeddingClient)
	}
	labels.SetSimilarityThreshold(opts.LabelSimilarity)
	labels.SetTypePredicate(typePredicate)
	if err := labels.Warm(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := labels.Seed(ctx, aliases); err != nil {
		s.Close()
		return nil, fmt.Errorf("seed alias table: %w", err)
	}
	s.Labels = labels

	schema, err := buildSchema(ctx, labels, typePredicate, opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Schema = schema

	if s.pool != nil {
		s.GraphStore = store.NewCachedGraphStore(store.NewStatementStore(s.pool, schema), schema, opts.TypeCacheTTL)
	} else {
		s.GraphStore = store.NewMemoryGraphStore(schema)
	}

	cfg, err := reasonerConfig(ctx, labels, typePredicate, opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Thoughts = service.NewThoughtService(s.GraphStore, cfg, logger)
	s.Metrics = metrics.New()
	s.Thoughts.SetMetrics(s.Metrics)

	if opts.NATSURL != "" {
		p, err := publish.Connect(opts.NATSURL, opts.NATSSubject, logger)
		if err != nil {
			logger.Warn("bundle publishing disabled", zap.Error(err))
		} else {
			s.publisher = p
			s.Thoughts.SetPublisher(p)
			logger.Info("publishing bundles", zap.String("subject", p.Subject()))
		}
	}

	if err := s.Thoughts.WarmStatistics(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func buildSchema(ctx context.Context, labels *service.LabelService, typePredicate domain.Identifier, opts Options) (domain.Schema, error) {
	schema := domain.DefaultSchema()
	schema.TypePredicate = typePredicate

	resolve := func(constraints map[string]string, into map[domain.Identifier]domain.Identifier) error {
		for _, predLabel := range sortedKeys(constraints) {
			pred, err := labels.Normalize(ctx, predLabel, domain.KindPredicate)
			if err != nil {
				return fmt.Errorf("predicate %q: %w", predLabel, err)
			}
			typ, err := labels.Normalize(ctx, constraints[predLabel], domain.KindType)
			if err != nil {
				return fmt.Errorf("type %q: %w", constraints[predLabel], err)
			}
			into[pred] = typ
		}
		return nil
	}
	if err := resolve(opts.PredicateDomains, schema.Domain); err != nil {
		return domain.Schema{}, err
	}
	if err := resolve(opts.PredicateRanges, schema.Range); err != nil {
		return domain.Schema{}, err
	}
	return schema, nil
}

func reasonerConfig(ctx context.Context, labels *service.LabelService, typePredicate domain.Identifier, opts Options) (service.ReasonerConfig, error) {
	cfg := service.DefaultReasonerConfig()
	cfg.TypePredicate = typePredicate
	cfg.TrustHalfLife = opts.TrustHalfLife
	cfg.ConflictMargin = opts.ConflictMargin
	if opts.GapThreshold > 0 {
		cfg.GapThreshold = opts.GapThreshold
	}
	if opts.GapMinSupport > 0 {
		cfg.GapMinSupport = opts.GapMinSupport
	}
	if opts.GapMaxPerEntity > 0 {
		cfg.GapMaxPerEntity = opts.GapMaxPerEntity
	}

	for _, label := range opts.MultiValued {
		id, err := labels.Normalize(ctx, label, domain.KindPredicate)
		if err != nil {
			return cfg, fmt.Errorf("multi-valued predicate %q: %w", label, err)
		}
		cfg.MultiValued = append(cfg.MultiValued, id)
	}

	cfg.SourceTrust = make(map[domain.Identifier]float64, len(opts.SourceTrust))
	for label, w := range opts.SourceTrust {
		if id := service.SourceIdentifier(label); id != "" {
			cfg.SourceTrust[id] = w
		}
	}
	return cfg, nil
}

// Ping checks the database when there is one.
func (s *Stack) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// Persistent reports whether the stack is backed by Postgres.
func (s *Stack) Persistent() bool {
	return s.pool != nil
}

func (s *Stack) Close() {
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
