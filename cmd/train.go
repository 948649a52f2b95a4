package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bonfito/billie/internal/app"
	"github.com/bonfito/billie/internal/history"
	"github.com/bonfito/billie/pkg/feature"
	"github.com/bonfito/billie/pkg/taste"
)

var (
	// Train command flags
	trainPasses      int
	trainFromHistory bool
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Replay accepted songs through the predictor",
	Long: `Replay the accepted-track log through the online predictor and persist
the resulting weights.

The replay walks the log in acceptance order, reproducing the context the
listener had at each step: the predictor trains on every
(context, accepted song) transition and the context advances by the
running-mean update afterward, exactly as it did live. Multiple passes
re-run the same sequence to sharpen a young model.

Examples:
  # One pass over the durable accepted log
  billie train

  # Seed the replay from the history export as well
  billie train --from-history

  # Several passes for a fresh model
  billie train --passes 5`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().IntVar(&trainPasses, "passes", 1,
		"number of passes over the accepted log")
	trainCmd.Flags().BoolVar(&trainFromHistory, "from-history", false,
		"prepend the listening history export to the replay sequence")
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Store == nil {
		return fmt.Errorf("training requires the store; remove store.disabled")
	}
	if trainPasses <= 0 {
		trainPasses = 1
	}

	sequence, err := replaySequence(a)
	if err != nil {
		return err
	}
	if len(sequence) == 0 {
		fmt.Println("Nothing to replay: no accepted songs recorded yet.")
		return nil
	}

	steps := 0
	for pass := 0; pass < trainPasses; pass++ {
		current := feature.Neutral()
		for i, target := range sequence {
			if err := a.Oracle.TrainIncremental(current, target); err != nil {
				return fmt.Errorf("replay step %d: %w", steps, err)
			}
			current = taste.Avalanche(current, target, i+1)
			steps++
		}
	}

	if err := a.SaveOracle(); err != nil {
		return err
	}

	losses := a.Oracle.LossHistory()
	first, last := losses[0], losses[len(losses)-1]
	a.Logger.Info("replay training complete",
		zap.Int("sequence", len(sequence)),
		zap.Int("passes", trainPasses),
		zap.Int("steps", steps),
		zap.Float64("firstLoss", first),
		zap.Float64("lastLoss", last),
	)
	fmt.Printf("Trained on %d transitions over %d pass(es): loss %.6f -> %.6f\n",
		len(sequence), trainPasses, first, last)
	return nil
}

// replaySequence builds the chronological list of accepted feature vectors,
// optionally prefixed by the history export.
func replaySequence(a *app.App) ([]feature.Vector, error) {
	var sequence []feature.Vector

	if trainFromHistory {
		entries, err := history.LoadCSV(a.Config.History.Path, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
		history.SortChronological(entries)
		sequence = append(sequence, history.Vectors(entries)...)
	}

	accepted, err := a.Store.Accepted()
	if err != nil {
		return nil, fmt.Errorf("failed to read accepted log: %w", err)
	}
	for _, rec := range accepted {
		sequence = append(sequence, rec.Features)
	}
	return sequence, nil
}
