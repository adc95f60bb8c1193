package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by THOUGHTS_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("THOUGHTS_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// DatabaseURL selects the Postgres store. Empty means in-memory stores.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// RateLimitRPS returns the per-client requests per second limit. Defaults
// to 100; zero or a negative value turns rate limiting off.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// APIKeys returns the bearer keys accepted by the API. Empty disables auth.
func APIKeys() []string {
	return List("API_KEYS")
}

func AliasTablePath() string {
	return os.Getenv("ALIAS_TABLE_PATH")
}

// AliasTieBreak returns the rule for labels with several identifiers.
// Defaults to "most_frequent".
// Valid values: most_frequent, most_recent, earliest_seen, strict
func AliasTieBreak() string {
	t := os.Getenv("ALIAS_TIE_BREAK")
	if t == "" {
		return "most_frequent"
	}
	return t
}

// LabelSimilarityThreshold is the minimum cosine similarity for a fuzzy
// label match. Defaults to 0.75.
func LabelSimilarityThreshold() float32 {
	v, err := strconv.ParseFloat(os.Getenv("LABEL_SIMILARITY_THRESHOLD"), 32)
	if err != nil || v <= 0 || v > 1 {
		return 0.75
	}
	return float32(v)
}

// EmbeddingProvider returns the configured label embedding provider.
// Defaults to "none", which turns fuzzy label matching off.
// Valid values: trigram, none
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "none"
	}
	return p
}

// TrustHalfLife is the recency half-life of source assertions. Zero, the
// default, disables decay.
func TrustHalfLife() time.Duration {
	d, err := time.ParseDuration(os.Getenv("TRUST_HALF_LIFE"))
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// ConflictMargin is how far the top claim must lead to resolve a conflict.
// Defaults to 0.
func ConflictMargin() float64 {
	m, err := strconv.ParseFloat(os.Getenv("CONFLICT_MARGIN"), 64)
	if err != nil || m < 0 {
		return 0
	}
	return m
}

// SourceTrust parses SOURCE_TRUST as comma separated label=weight pairs.
// Malformed or negative entries are skipped.
func SourceTrust() map[string]float64 {
	out := make(map[string]float64)
	for _, pair := range List("SOURCE_TRUST") {
		label, weight, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
		if err != nil || w < 0 {
			continue
		}
		out[strings.TrimSpace(label)] = w
	}
	return out
}

// GapThreshold is the share of same-typed entities that must use a predicate
// before its absence is reported. Defaults to 0.3.
func GapThreshold() float64 {
	t, err := strconv.ParseFloat(os.Getenv("GAP_THRESHOLD"), 64)
	if err != nil || t <= 0 || t > 1 {
		return 0.3
	}
	return t
}

// GapMinSupport is the minimum number of entities a type needs before it
// produces gaps. Defaults to 1.
func GapMinSupport() int {
	n, err := strconv.Atoi(os.Getenv("GAP_MIN_SUPPORT"))
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

// GapMaxPerEntity caps gap thoughts per entity. Defaults to 5.
func GapMaxPerEntity() int {
	n, err := strconv.Atoi(os.Getenv("GAP_MAX_PER_ENTITY"))
	if err != nil || n <= 0 {
		return 5
	}
	return n
}

// TypePredicate is the label of the predicate that assigns types.
// Defaults to "rdf:type".
func TypePredicate() string {
	p := os.Getenv("TYPE_PREDICATE")
	if p == "" {
		return "rdf:type"
	}
	return p
}

// MultiValuedPredicates lists predicate labels that may hold several objects
// per subject.
func MultiValuedPredicates() []string {
	return List("MULTI_VALUED_PREDICATES")
}

// PredicateDomains parses PREDICATE_DOMAINS as predicate=type pairs.
func PredicateDomains() map[string]string {
	return pairs("PREDICATE_DOMAINS")
}

// PredicateRanges parses PREDICATE_RANGES as predicate=type pairs.
func PredicateRanges() map[string]string {
	return pairs("PREDICATE_RANGES")
}

// TypeCacheTTL is how long entity types are cached in front of Postgres.
// Defaults to 5m.
func TypeCacheTTL() time.Duration {
	d, err := time.ParseDuration(os.Getenv("TYPE_CACHE_TTL"))
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// NATSURL enables bundle publishing when set.
func NATSURL() string {
	return os.Getenv("NATS_URL")
}

// NATSSubject defaults to "thoughts.bundle".
func NATSSubject() string {
	s := os.Getenv("NATS_SUBJECT")
	if s == "" {
		return "thoughts.bundle"
	}
	return s
}

// List splits a comma separated env var, dropping empty items.
func List(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func pairs(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range List(key) {
		k, v, ok := strings.Cut(pair, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
