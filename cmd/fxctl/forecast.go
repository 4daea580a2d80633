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
	flagDays   int
	flagMonths int
)

var forecastCmd = &cobra.Command{
	Use:   "forecast BASE QUOTE",
	Short: "Daily forecast of BASE units per one QUOTE",
	Args:  cobra.ExactArgs(2),
	RunE:  runForecast,
}

var monthlyCmd = &cobra.Command{
	Use:   "monthly BASE QUOTE",
	Short: "Monthly mean forecast starting next month",
	Args:  cobra.ExactArgs(2),
	RunE:  runMonthly,
}

func init() {
	forecastCmd.Flags().IntVarP(&flagDays, "days", "n", 30, "forecast horizon in days")
	monthlyCmd.Flags().IntVar(&flagMonths, "months", 12, "number of months")
	rootCmd.AddCommand(forecastCmd, monthlyCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	base, quote, err := pairArgs(args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	return withService(func(svc *usecase.ForecastService) error {
		res, err := svc.ForecastDaily(ctx, base, quote, flagDays)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res.Daily)
		}

		fmt.Printf("%s  path=%s model=%s\n", res.Pair.Key(), res.Path, res.Model)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "DATE\tP10\tP50\tP90\t")
		for _, d := range res.Daily {
			fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t\n", d.Date.Format("2006-01-02"), d.P10, d.P50, d.P90)
		}
		return w.Flush()
	})
}

func runMonthly(cmd *cobra.Command, args []string) error {
	base, quote, err := pairArgs(args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	return withService(func(svc *usecase.ForecastService) error {
		months, err := svc.ForecastMonthly(ctx, base, quote, flagMonths)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(months)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "MONTH\tP10\tP50\tP90\t")
		for _, m := range months {
			fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t\n", m.Month, m.P10, m.P50, m.P90)
		}
		return w.Flush()
	})
}
