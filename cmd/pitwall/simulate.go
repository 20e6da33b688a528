package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSimulateCmd(g *globalFlags) *cobra.Command {
	var (
		login       bool
		showState   []string
		showHistory bool
		races       []string
	)
	cmd := &cobra.Command{
		Use:   "simulate PATH...",
		Short: "Run navigations against an in-memory history and print the results",
		Example: `  pitwall simulate /races /drivers/44 /nope
  pitwall simulate --login /feed --state router,auth
  pitwall simulate --race Monza --race Spa /races --state races`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, history, target, err := g.buildRuntime(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if _, err := rt.Start(ctx); err != nil {
				return err
			}
			defer rt.Stop()

			for _, name := range races {
				if _, err := rt.Backend.Create(ctx, "races", map[string]any{"name": name}); err != nil {
					return err
				}
			}

			if login {
				rt.Login(map[string]any{"id": "dev", "name": "Developer"})
			}

			for _, p := range args {
				res := rt.Navigate(ctx, p)
				landed := "-"
				if cur := rt.Router.Current(); cur != nil {
					landed = cur.FullPath
				}
				fmt.Fprintf(out, "%-24s %-11s %-24s %q\n", p, res.Status, landed, target.Title())
				if res.Err != nil {
					fmt.Fprintf(out, "    error: %v\n", res.Err)
				}
			}

			if showHistory {
				fmt.Fprintln(out, "\nsession history:")
				for i, e := range history.Entries() {
					fmt.Fprintf(out, "  %2d %s\n", i, e.Path)
				}
				fmt.Fprintln(out, "\nstate history:")
				for _, e := range rt.Store.History() {
					fmt.Fprintf(out, "  %s %s\n", e.Timestamp.Format("15:04:05.000"), e.Path)
				}
			}

			if len(showState) > 0 {
				doc, err := rt.Store.Export(showState...)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nstate: %s\n", doc)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&login, "login", false, "Authenticate a development user first")
	cmd.Flags().StringSliceVar(&showState, "state", nil, "State paths to print as JSON after the run")
	cmd.Flags().BoolVar(&showHistory, "history", false, "Print session and state history")
	cmd.Flags().StringArrayVar(&races, "race", nil, "Create a race document in the backend before navigating")
	return cmd
}
