package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"planforge/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent applies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(history.DefaultPath())
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.Recent(historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No applies recorded yet.")
			return nil
		}
		for _, r := range records {
			fmt.Printf("%s  %-12s %-20s %s\n",
				r.AppliedAt.Local().Format("2006-01-02 15:04"), r.Stack, r.Name, r.ProjectDir)
			if r.Warnings > 0 {
				fmt.Printf("%26s%d warning(s), run: %s\n", "", r.Warnings, r.RunCmd)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max records to show")
}
