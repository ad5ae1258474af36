package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/ragguard/internal/app"
	"github.com/nikhilbhutani/ragguard/internal/config"
	"github.com/nikhilbhutani/ragguard/internal/eval"
)

var (
	questionsPath string
	projectID     string
	topK          int
	jsonOutput    bool
)

var rootCmd = &cobra.Command{
	Use:   "eval",
	Short: "Measure retrieval hit rate against a question set",
	Long: `Runs every question in the question file through retrieval and
reports a HIT when the expected document is among the top-K results.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runEval,
}

func init() {
	rootCmd.Flags().StringVarP(&questionsPath, "questions", "q", "questions.json", "path to the question file")
	rootCmd.Flags().StringVarP(&projectID, "project", "p", "1", "project to evaluate")
	rootCmd.Flags().IntVarP(&topK, "top-k", "k", eval.DefaultTopK, "documents retrieved per question")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "output the report as JSON")
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runEval(cmd *cobra.Command, _ []string) error {
	questions, err := eval.LoadQuestions(questionsPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := eval.Run(ctx, a.Retriever, projectID, questions, topK)
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printReport(cmd.OutOrStdout(), report, topK)
	return nil
}

func printReport(w io.Writer, report *eval.Report, k int) {
	hit := color.New(color.FgGreen, color.Bold).SprintFunc()
	miss := color.New(color.FgRed, color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(w, "\n--- Retrieval evaluation (top-%d) ---\n", k)
	for _, r := range report.Results {
		q := r.Question.Question
		if runes := []rune(q); len(runes) > 40 {
			q = string(runes[:40]) + "..."
		}
		if r.Hit {
			fmt.Fprintf(w, "%s  | Q: %s\n", hit("HIT"), q)
			continue
		}
		fmt.Fprintf(w, "%s | Q: %s\n", miss("MISS"), q)
		fmt.Fprintln(w, faint(fmt.Sprintf("   expected: %s | found: %v", r.Question.ExpectedDoc, r.Retrieved)))
		if r.Err != "" {
			fmt.Fprintln(w, faint("   error: "+r.Err))
		}
	}

	summary := color.New(color.Bold).SprintfFunc()
	fmt.Fprintln(w, summary("\n--- Result: %.2f%% (%d/%d) ---", report.HitRate()*100, report.Hits, report.Total))
}
