package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"TravelFX/internal/usecase"
)

var (
	flagBudget    float64
	flagDailyCost float64
	flagTripDays  int
)

var rankCmd = &cobra.Command{
	Use:   "rank BASE QUOTE",
	Short: "Rank the coming months by expected trip cost",
	Long: "Rank the coming months for a trip paid in BASE with daily spending in QUOTE.\n" +
		"Months are ordered by expected cost, cheapest first.",
	Args: cobra.ExactArgs(2),
	RunE: runRank,
}

func init() {
	rankCmd.Flags().IntVar(&flagMonths, "months", 12, "number of months to consider")
	rankCmd.Flags().Float64Var(&flagBudget, "budget", 0, "trip budget in BASE")
	rankCmd.Flags().Float64Var(&flagDailyCost, "daily-cost", 0, "daily spending in QUOTE")
	rankCmd.Flags().IntVar(&flagTripDays, "trip-days", 7, "trip length in days")
	_ = rankCmd.MarkFlagRequired("budget")
	_ = rankCmd.MarkFlagRequired("daily-cost")
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	base, quote, err := pairArgs(args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	return withService(func(svc *usecase.ForecastService) error {
		ranked, err := svc.RankForTrip(ctx, base, quote, flagMonths, flagBudget, flagDailyCost, flagTripDays)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(ranked)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "MONTH\tP50\tEXPECTED COST\tWITHIN BUDGET\t")
		for _, r := range ranked {
			fmt.Fprintf(w, "%s\t%.4f\t%.2f\t%.0f%%\t\n", r.Month, r.P50, r.ExpectedCost, r.ProbabilityWithinBudget*100)
		}
		return w.Flush()
	})
}
