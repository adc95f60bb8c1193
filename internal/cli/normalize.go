package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/Harshitk-cp/thoughtgraph/internal/service"
	"github.com/spf13/cobra"
)

type normalizeResult struct {
	Label      string              `json:"label"`
	Kind       domain.EntityKind   `json:"kind"`
	Canonical  string              `json:"canonical"`
	ID         domain.Identifier   `json:"id"`
	Candidates []domain.Identifier `json:"candidates,omitempty"`
}

func newNormalizeCmd(root *rootOptions) *cobra.Command {
	var kind, tieBreak string

	cmd := &cobra.Command{
		Use:   "normalize <label>...",
		Short: "Resolve labels to identifiers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !domain.ValidEntityKind(kind) {
				return fmt.Errorf("%w: %q", service.ErrInvalidKind, kind)
			}
			if tieBreak != "" && !service.ValidTieBreak(tieBreak) {
				return fmt.Errorf("%w: %q", service.ErrInvalidTieBreak, tieBreak)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			s, err := root.buildStack(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			k := domain.EntityKind(kind)
			rule := s.Labels.Normalizer().Rule()
			if tieBreak != "" {
				rule = service.TieBreak(tieBreak)
			}
			for _, label := range args {
				id, err := s.Labels.NormalizeWith(ctx, label, k, rule)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), normalizeResult{
					Label:      label,
					Kind:       k,
					Canonical:  service.Canonicalize(label),
					ID:         id,
					Candidates: s.Labels.Normalizer().Candidates(label, k),
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", string(domain.KindEntity), "label kind (entity, predicate, type)")
	cmd.Flags().StringVar(&tieBreak, "tie-break", "", "rule for ambiguous labels: most_frequent, most_recent, earliest_seen, strict")
	return cmd
}
