package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facegate/internal/app"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "List or delete enrolled identities",
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}

		identities, err := a.Enrollment.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EXTERNAL ID\tNAME\tENROLLED")
		for _, id := range identities {
			fmt.Fprintf(w, "%s\t%s\t%s\n", id.ExternalID, id.Name, id.EnrolledAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var identitiesDeleteCmd = &cobra.Command{
	Use:   "delete <external-id>",
	Short: "Delete an identity and its embeddings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}

		if err := a.Enrollment.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return err
	},
}

func init() {
	identitiesCmd.AddCommand(identitiesListCmd)
	identitiesCmd.AddCommand(identitiesDeleteCmd)
}
