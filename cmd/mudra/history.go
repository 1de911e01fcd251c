package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/event"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently dispatched events",
	RunE:  runHistory,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dispatch counts and average confidence per label",
	RunE:  runStats,
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show recent action outcomes",
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resultsCmd)

	historyCmd.Flags().Int("limit", 20, "Number of entries to show")
	resultsCmd.Flags().Int("limit", 20, "Number of results to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	_, _, st, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := st.History().Recent(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No events dispatched yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCHANNEL\tLABEL\tCONFIDENCE\tFRAME")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\n",
			e.Timestamp.Local().Format(time.DateTime), e.Channel, e.Label, e.Confidence, e.FrameIndex)
	}
	return w.Flush()
}

func runStats(cmd *cobra.Command, args []string) error {
	_, _, st, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := st.History().Stats()
	if err != nil {
		return err
	}
	if stats.Total == 0 {
		fmt.Println("No events dispatched yet.")
		return nil
	}

	fmt.Printf("Total: %d", stats.Total)
	for ch := event.Channel(0); ch < event.NumChannels; ch++ {
		fmt.Printf("  %s: %d", ch, stats.ByChannel[ch])
	}
	fmt.Printf("\nMost common: %s\n\n", stats.MostCommon)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tLABEL\tCOUNT\tAVG CONFIDENCE")
	for _, ls := range stats.Labels {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", ls.Channel, ls.Label, ls.Count, ls.AvgConfidence)
	}
	return w.Flush()
}

func runResults(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	_, _, st, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := st.Results().Recent(limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No actions executed yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tLABEL\tACTION\tSTATUS\tDETAIL")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s\t%s\n",
			r.Timestamp.Local().Format(time.DateTime), r.Label, r.PluginName, r.ActionName, r.Status, r.Detail)
	}
	return w.Flush()
}
