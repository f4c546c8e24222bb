// Package cli — list.go implements the "treeline list" command, which
// prints the registry's workspace records.
package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// listFlags holds the flag values for the list command.
type listFlags struct {
	all bool // --all: include archived workspaces
}

// NewListCommand creates the "list" cobra command.
func NewListCommand() *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered workspaces",

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.all, "all", "a", false, "Include archived workspaces")

	return cmd
}

func runList(cmd *cobra.Command, flags *listFlags) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	workspaces, err := a.registry.List(cmd.Context())
	if err != nil {
		return err
	}

	if !flags.all {
		filtered := workspaces[:0]
		for _, ws := range workspaces {
			if !ws.Archived {
				filtered = append(filtered, ws)
			}
		}
		workspaces = filtered
	}

	if jsonOutput {
		return printJSON(workspaces)
	}

	if len(workspaces) == 0 {
		fmt.Println("No workspaces")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBRANCH\tCONTAINER\tCREATED\tARCHIVED")
	for _, ws := range workspaces {
		container := ws.ContainerRef
		if container == "" {
			container = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
			ws.Name, ws.Branch, container,
			ws.CreatedAt.Format("2006-01-02 15:04"), ws.Archived)
	}
	return w.Flush()
}
