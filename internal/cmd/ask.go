package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ortalis97/garmin-ai-explorer/internal/config"
	"github.com/ortalis97/garmin-ai-explorer/internal/explorer"
	"github.com/ortalis97/garmin-ai-explorer/internal/llm"
)

var (
	askShowData bool
	askExport   string
)

var askCmd = &cobra.Command{
	Use:   "ask \"question\"",
	Short: "Ask a question about your data in natural language",
	Long: `Translate a natural language question into SQL, run it against the
store, and summarize the results. Only read-only queries are executed.

Examples:
  garminsync ask "What is my average running distance in the last 30 days?"
  garminsync ask "How does my sleep quality correlate with my running performance?"
  garminsync ask "Show me my top 5 longest runs this year" --show-data`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowData, "show-data", false, "Print the full result rows")
	askCmd.Flags().StringVar(&askExport, "export", "", "Export result rows to a CSV file")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	client, err := llm.New(llm.Config{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.AnthropicAPIKey,
		Model:    cfg.LLMModel,
	})
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	exp := explorer.New(client, store)
	res, err := exp.Ask(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("\nSQL:\n%s\n\n", res.SQL)
	fmt.Printf("%d rows\n\n", len(res.Rows))
	fmt.Println(res.Summary)

	if res.Chart.ChartType != "" && res.Chart.ChartType != "table" {
		fmt.Printf("\nSuggested chart: %s (%s", res.Chart.ChartType, res.Chart.Title)
		if res.Chart.XAxis != "" {
			fmt.Printf("; x=%s y=%s", res.Chart.XAxis, strings.Join(res.Chart.YAxis, ","))
		}
		fmt.Println(")")
	}

	if askShowData {
		fmt.Println()
		fmt.Println(strings.Join(res.Columns, "\t"))
		for _, row := range res.Rows {
			fmt.Println(strings.Join(row, "\t"))
		}
	}

	if askExport != "" {
		if err := exportCSV(askExport, res.Columns, res.Rows); err != nil {
			return err
		}
		fmt.Printf("\nResults exported to %s\n", askExport)
	}
	return nil
}

func exportCSV(path string, columns []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
