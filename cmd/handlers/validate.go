package handlers

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateURLsCmd creates the validate-urls command
func NewValidateURLsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate-urls <url>...",
		Short: "Check that link targets resolve",
		Long: `Internal URLs are checked against published articles; external URLs
get an HTTP HEAD request that follows redirects.

Example:
  interlink validate-urls /blog/grip-basics https://example.com/guide`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.linking.ValidateURLs(cmd.Context(), args)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), results)
			}

			out := cmd.OutOrStdout()
			invalid := 0
			for _, r := range results {
				mark := "ok  "
				if !r.Valid {
					mark = "FAIL"
					invalid++
				}
				line := fmt.Sprintf("%s %3d %s", mark, r.Status, r.URL)
				if r.Redirect != "" {
					line += " -> " + r.Redirect
				}
				if r.Error != "" {
					line += " (" + r.Error + ")"
				}
				fmt.Fprintln(out, line)
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d urls are invalid", invalid, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the raw results as JSON")
	return cmd
}
