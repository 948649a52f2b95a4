package cmd

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bonfito/billie/configs"
	"github.com/bonfito/billie/internal/catalog"
	"github.com/bonfito/billie/internal/session"
	"github.com/bonfito/billie/internal/store"
	"github.com/bonfito/billie/pkg/feature"
	"github.com/bonfito/billie/pkg/oracle"
	"github.com/bonfito/billie/pkg/rerank"
	"github.com/bonfito/billie/pkg/vindex"
)

var (
	// Simulate command flags
	simulateRounds int
	simulateSeed   int64
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a synthetic listener against the catalog",
	Long: `Run a synthetic listener session against the configured catalog and
report how quickly the predictor converges on its taste.

The simulated listener has a hidden target profile drawn at random. Each
round the engine recommends a list; the listener accepts the suggestion
closest to its hidden profile and rejects the farthest one. Everything is
in-memory, so no durable state is touched.

Examples:
  billie simulate
  billie simulate --rounds 50 --seed 7`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().IntVar(&simulateRounds, "rounds", 30,
		"number of recommend/accept rounds")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", 1,
		"seed for the hidden taste profile")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := zap.NewNop()
	if config.Verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
	}

	cat, _, err := catalog.LoadCSV(config.Catalog.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	idx, err := vindex.NewFlat(cat.IndexEntries())
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	st, err := store.OpenInMemory(logger)
	if err != nil {
		return err
	}
	defer st.Close()

	oracleCfg := config.Oracle
	oracleCfg.Seed = simulateSeed
	o := oracle.New(oracleCfg)
	sess, err := session.New(config.Session, session.Deps{
		Catalog: cat,
		Index:   idx,
		Oracle:  o,
		Ranker:  rerank.New(config.Rerank),
		Store:   st,
		Logger:  logger,
	}, nil)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(simulateSeed))
	var hidden feature.Vector
	for i := range hidden {
		hidden[i] = rng.Float64()
	}

	fmt.Printf("Hidden taste profile: %v\n", hidden.Slice())
	fmt.Println("ROUND  ACCEPTED-DISTANCE  LIST-SIZE")

	for round := 1; round <= simulateRounds; round++ {
		items, err := sess.Recommend(ctx, 0)
		if errors.Is(err, session.ErrNoSuggestions) {
			fmt.Printf("Catalog exhausted after %d rounds.\n", round-1)
			break
		}
		if err != nil {
			return err
		}

		best, worst := closestAndFarthest(cat, items, hidden)
		if err := sess.OnAccept(items[best].ID); err != nil {
			return err
		}
		if worst != best {
			if err := sess.OnReject(items[worst].ID); err != nil {
				return err
			}
		}

		track, _ := cat.Get(items[best].ID)
		fmt.Printf("%5d  %17.4f  %9d\n", round, feature.Distance(hidden, track.Features), len(items))
	}

	fmt.Printf("Final context distance to taste: %.4f\n", feature.Distance(hidden, sess.Context()))

	losses := o.LossHistory()
	if len(losses) > 0 {
		fmt.Printf("Predictor loss: %.6f -> %.6f over %d steps\n",
			losses[0], losses[len(losses)-1], len(losses))
	}
	return nil
}

// closestAndFarthest picks the list positions nearest to and farthest from
// the hidden taste profile.
func closestAndFarthest(cat *catalog.Catalog, items []rerank.Item, hidden feature.Vector) (best, worst int) {
	bestDist, worstDist := -1.0, -1.0
	for i, it := range items {
		track, ok := cat.Get(it.ID)
		if !ok {
			continue
		}
		d := feature.Distance(hidden, track.Features)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
		if d > worstDist {
			worst, worstDist = i, d
		}
	}
	return best, worst
}
