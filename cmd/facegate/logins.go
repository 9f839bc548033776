package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facegate/internal/app"
)

var loginsLimit int

var loginsCmd = &cobra.Command{
	Use:   "logins",
	Short: "Show the most recent accepted logins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}

		records, err := a.Logins.Recent(cmd.Context(), loginsLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tEXTERNAL ID\tNAME\tCONFIDENCE")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.ExternalID, r.Name, r.Confidence)
		}
		return w.Flush()
	},
}

func init() {
	loginsCmd.Flags().IntVarP(&loginsLimit, "limit", "n", 20, "Number of logins to show")
}
