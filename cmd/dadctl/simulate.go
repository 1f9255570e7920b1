package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Krimson/dadguide/internal/simulate"
)

func newSimulateCmd(dbPath *string) *cobra.Command {
	var (
		pattern string
		count   int
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Record a synthetic series of contractions ending now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := simulate.Lookup(pattern)
			if err != nil {
				return err
			}
			if count <= 0 {
				return fmt.Errorf("count must be positive")
			}
			gen, err := simulate.NewGenerator(p, seed)
			if err != nil {
				return err
			}
			samples := gen.Samples(count)
			clock := simulate.NewClock(time.Now().Add(-simulate.Span(samples)))

			ctx := context.Background()
			s, err := openSession(ctx, *dbPath, clock.Now)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := simulate.Run(ctx, s.manager, clock, samples)
			if err != nil {
				return err
			}
			printWarning(cmd, result.Warning)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderStatus(result.Status))
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "active", "contraction pattern: "+strings.Join(simulate.PatternNames(), "|"))
	cmd.Flags().IntVar(&count, "count", 6, "number of contractions")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	return cmd
}
