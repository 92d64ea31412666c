package handlers

import (
	"fmt"
	"io"

	"interlink/internal/core"

	"github.com/spf13/cobra"
)

// NewSyncCmd creates the sync command
func NewSyncCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sync <post-id>",
		Short: "Rebuild the link ledger of an article from its content",
		Long: `Re-extract every link in the article's content and replace its
ledger rows. Use after content was edited outside of interlink.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			links, err := a.linking.SyncLedger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), links)
			}
			printLinks(cmd.OutOrStdout(), links)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the ledger rows as JSON")
	return cmd
}

// NewLinksCmd creates the links command
func NewLinksCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "links <post-id>",
		Short: "List the tracked links of an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			links, err := a.linking.ListLinks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), links)
			}
			printLinks(cmd.OutOrStdout(), links)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the ledger rows as JSON")
	return cmd
}

func printLinks(w io.Writer, links []core.LinkRecord) {
	internal := 0
	for _, l := range links {
		flags := ""
		if l.OpensNewTab {
			flags += " new-tab"
		}
		if l.IsNofollow {
			flags += " nofollow"
		}
		if l.LinkType == core.LinkInternal {
			internal++
		}
		fmt.Fprintf(w, "%-8s %-36s %q -> %s%s\n", l.LinkType, l.ID, l.AnchorText, l.URL, flags)
	}
	fmt.Fprintf(w, "\n%d links (%d internal, %d external)\n", len(links), internal, len(links)-internal)
}
