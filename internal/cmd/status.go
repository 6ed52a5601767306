package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ortalis97/garmin-ai-explorer/internal/config"
	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts and date coverage per entity",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	fmt.Printf("%-15s %10s  %s\n", "entity", "rows", "coverage")
	for _, entity := range domain.AllEntities() {
		count, err := store.Count(ctx, entity)
		if err != nil {
			return err
		}
		first, last, err := store.DateRange(ctx, entity)
		if err != nil {
			return err
		}

		coverage := "-"
		if first != nil && last != nil {
			coverage = fmt.Sprintf("%s .. %s", first.Format("2006-01-02"), last.Format("2006-01-02"))
		}
		fmt.Printf("%-15s %10d  %s\n", entity, count, coverage)
	}
	return nil
}
