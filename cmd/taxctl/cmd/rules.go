package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taxdesk/internal/taxcalc"
)

var rulesCategory string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the built-in decision table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		table := taxcalc.DefaultTable()
		if err := table.Validate(); err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RULE\tCATEGORY\tRATE %\tPPN")
		for _, r := range table.Rules {
			if rulesCategory != "" && string(r.Category) != rulesCategory {
				continue
			}
			ppn := "-"
			if r.VAT {
				ppn = table.VATRate.Shift(2).String() + "%"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Category, r.RatePercent.String(), ppn)
		}
		return w.Flush()
	},
}

func init() {
	rulesCmd.Flags().StringVarP(&rulesCategory, "category", "c", "", "only show rules of this category (INDIVIDUAL, BUSINESS)")
}
