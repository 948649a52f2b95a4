package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/bonfito/billie/internal/app"
	"github.com/bonfito/billie/internal/session"
	"github.com/bonfito/billie/pkg/rerank"
)

var (
	// Recommend command flags
	recommendCount       int
	recommendMood        []string
	recommendInteractive bool
	recommendOutput      string
)

// recommendCmd represents the recommend command
var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Suggest the next songs and learn from feedback",
	Long: `Suggest the next songs for the current listening context.

Without --interactive the command prints one recommendation list and exits.
With --interactive it keeps a session open: accepting a song trains the
predictor and advances the context, rejecting one blacklists it, and the
next list reflects both.

Examples:
  # One list of ten suggestions
  billie recommend

  # Force the mood before suggesting
  billie recommend --mood energy=0.9 --mood valence=0.8

  # Interactive feedback session
  billie recommend --interactive

  # Machine-readable output
  billie recommend --output json`,
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().IntVarP(&recommendCount, "count", "n", 0,
		"number of suggestions (default from config)")
	recommendCmd.Flags().StringArrayVar(&recommendMood, "mood", nil,
		"mood override as feature=value, repeatable (e.g. energy=0.9)")
	recommendCmd.Flags().BoolVarP(&recommendInteractive, "interactive", "i", false,
		"keep the session open and read accept/reject commands from stdin")
	recommendCmd.Flags().StringVarP(&recommendOutput, "output", "o", "table",
		"output format (table, json)")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := applyMoodFlags(a.Session, recommendMood); err != nil {
		return err
	}

	items, err := a.Session.Recommend(ctx, recommendCount)
	if err != nil {
		if errors.Is(err, session.ErrNoSuggestions) {
			fmt.Println("No suggestions available: the catalog is exhausted for this session.")
			return nil
		}
		return err
	}
	if err := printItems(items, recommendOutput); err != nil {
		return err
	}

	if !recommendInteractive {
		return a.SaveOracle()
	}

	if err := feedbackLoop(cmd, a, items); err != nil {
		return err
	}
	return a.SaveOracle()
}

// feedbackLoop reads accept/reject/mood/next commands from stdin until the
// listener quits or input ends.
func feedbackLoop(cmd *cobra.Command, a *app.App, items []rerank.Item) error {
	ctx := cmd.Context()
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println()
	fmt.Println("Commands: accept <#>, reject <#>, mood <feature>=<value>, next, quit")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "accept", "reject":
			if len(fields) != 2 {
				fmt.Printf("usage: %s <#>\n", fields[0])
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 1 || n > len(items) {
				fmt.Printf("pick a number between 1 and %d\n", len(items))
				continue
			}
			it := items[n-1]
			if fields[0] == "accept" {
				err = a.Session.OnAccept(it.ID)
			} else {
				err = a.Session.OnReject(it.ID)
			}
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("%sed %q by %s\n", fields[0], it.Title, it.Artist)

		case "mood":
			if err := applyMoodFlags(a.Session, fields[1:]); err != nil {
				fmt.Printf("error: %v\n", err)
			}

		case "next":
			next, err := a.Session.Recommend(ctx, recommendCount)
			if errors.Is(err, session.ErrNoSuggestions) {
				fmt.Println("No suggestions left for this session.")
				return nil
			}
			if err != nil {
				return err
			}
			items = next
			if err := printItems(items, recommendOutput); err != nil {
				return err
			}

		case "quit", "exit", "q":
			return nil

		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

// applyMoodFlags parses feature=value pairs and applies them as a mood
// override.
func applyMoodFlags(sess *session.Session, pairs []string) error {
	if len(pairs) == 0 {
		return nil
	}
	overrides := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("mood override %q is not feature=value", pair)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("mood override %q: %w", pair, err)
		}
		overrides[strings.TrimSpace(name)] = value
	}
	return sess.SetMood(overrides)
}

func printItems(items []rerank.Item, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)

	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tMATCH\tTITLE\tARTIST\tYEAR\tREASON")
		for i, it := range items {
			year := "-"
			if it.HasYear {
				year = strconv.Itoa(it.Year)
			}
			fmt.Fprintf(w, "%d\t%d%%\t%s\t%s\t%s\t%s\n",
				i+1, it.MatchPercent, it.Title, it.Artist, year, it.Reason)
		}
		return w.Flush()

	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
