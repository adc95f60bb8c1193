// Seed script that loads a small demo graph into thoughtgraph.
// Run with: go run ./scripts/seed.go
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/config"
	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/Harshitk-cp/thoughtgraph/internal/stack"
	"go.uber.org/zap"
)

var demo = []domain.RawStatement{
	{Subject: "Alice", Predicate: "is a", Object: "Person", Source: "hr system"},
	{Subject: "Bob", Predicate: "is a", Object: "Person", Source: "hr system"},
	{Subject: "Carol", Predicate: "is a", Object: "Person", Source: "hr system"},
	{Subject: "Acme", Predicate: "is a", Object: "Organization", Source: "registry"},
	{Subject: "Alice", Predicate: "worksFor", Object: "Acme", Source: "hr system"},
	{Subject: "Bob", Predicate: "worksFor", Object: "Acme", Source: "hr system"},
	{Subject: "Alice", Predicate: "livesIn", Object: "Paris", Source: "census"},
	{Subject: "Bob", Predicate: "livesIn", Object: "Lyon", Source: "census"},
	{Subject: "Carol", Predicate: "livesIn", Object: "Berlin", Source: "census"},
	{Subject: "Alice", Predicate: "livesIn", Object: "Paris", Source: "blog"},
	{Subject: "Alice", Predicate: "knows", Object: "Bob", Source: "social graph"},
	{Subject: "Bob", Predicate: "knows", Object: "Carol", Source: "social graph"},
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if config.DatabaseURL() == "" {
		log.Fatal("DATABASE_URL is required to seed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	opts := stack.OptionsFromConfig()
	opts.NATSURL = ""
	s, err := stack.Build(ctx, opts, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to build stack: %v", err)
	}
	defer s.Close()

	fmt.Println("Connected to database")

	base := time.Now().UTC().Add(-time.Duration(len(demo)) * time.Hour)
	for i, raw := range demo {
		raw.Timestamp = base.Add(time.Duration(i) * time.Hour)
		c, err := s.Labels.NormalizeStatement(ctx, raw)
		if err != nil {
			log.Fatalf("Failed to normalize %s %s %s: %v", raw.Subject, raw.Predicate, raw.Object, err)
		}
		stmt, err := s.Thoughts.Commit(ctx, c)
		if err != nil {
			log.Fatalf("Failed to commit %s: %v", c.Triple, err)
		}
		fmt.Printf("  %-8s %-10s %-14s (%d assertions)\n", raw.Subject, raw.Predicate, raw.Object, len(stmt.Assertions))
	}

	fmt.Println()
	fmt.Printf("Seeded %d statements\n", len(demo))
	fmt.Println("Try: thoughtctl reason -f statements.yaml")
}
