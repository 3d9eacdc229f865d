package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mcs-portfolio/internal/csvio"
	"mcs-portfolio/internal/report"
)

var templateOut string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Print a sample portfolio CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if templateOut == "" {
			_, err := io.WriteString(cmd.OutOrStdout(), csvio.Template())
			return err
		}
		if err := report.WriteFile(templateOut, func(w io.Writer) error {
			_, err := io.WriteString(w, csvio.Template())
			return err
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", templateOut)
		return nil
	},
}

func init() {
	templateCmd.Flags().StringVarP(&templateOut, "output", "o", "", "write the template to this file instead of stdout")
	rootCmd.AddCommand(templateCmd)
}
