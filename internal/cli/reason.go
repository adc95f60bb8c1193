package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// statementFile is the YAML input of the reason command.
type statementFile struct {
	Statements []domain.RawStatement `yaml:"statements"`
}

type reasonResult struct {
	Bundle    *domain.Bundle            `json:"bundle"`
	Stats     domain.BundleStats        `json:"stats"`
	Committed *domain.ExistingStatement `json:"committed,omitempty"`
}

func newReasonCmd(root *rootOptions) *cobra.Command {
	var (
		file    string
		commit  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "reason -f statements.yaml",
		Short: "Reason over every statement in a YAML file",
		Long: `reason normalizes each statement in the file, reasons over it against
the graph and prints its bundle as JSON. With --commit each statement is
committed after its bundle is produced, so later statements in the file
see earlier ones.

Example file:
  statements:
    - subject: Alice
      predicate: livesIn
      object: Paris
      source: census
    - subject: Alice
      predicate: lives in
      object: London
      source: blog
      perspective: {confidence: 0.6, sentiment: 0, polarity: affirmative, certainty: uncertain}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read statements: %w", err)
			}
			raws, err := parseStatements(data)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			s, err := root.buildStack(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			for i, raw := range raws {
				c, err := s.Labels.NormalizeStatement(ctx, raw)
				if err != nil {
					return fmt.Errorf("statement %d: %w", i+1, err)
				}
				bundle, err := s.Thoughts.Reason(ctx, c)
				if err != nil {
					return fmt.Errorf("statement %d: %w", i+1, err)
				}
				res := reasonResult{Bundle: bundle, Stats: bundle.Stats()}
				if commit {
					stmt, err := s.Thoughts.Commit(ctx, c)
					if err != nil {
						return fmt.Errorf("statement %d: commit: %w", i+1, err)
					}
					res.Committed = stmt
				}
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file of statements")
	cmd.Flags().BoolVar(&commit, "commit", false, "commit each statement after reasoning")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall timeout")
	return cmd
}

// parseStatements accepts either a top-level list or a document with a
// statements key.
func parseStatements(data []byte) ([]domain.RawStatement, error) {
	var list []domain.RawStatement
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var f statementFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse statements: %w", err)
	}
	return f.Statements, nil
}
