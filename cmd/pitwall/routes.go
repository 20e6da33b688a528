package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/pitwall/internal/app"
	"github.com/dshills/pitwall/internal/router"
)

func newRoutesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List configured routes in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := g.quietRuntime()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATTERN\tNAME\tVIEW\tTITLE\tAUTH\tPARAMS")
			for _, r := range rt.Router.Routes() {
				auth := ""
				if r.RequiresAuth {
					auth = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Pattern, r.Name, r.ViewID, r.Title, auth, strings.Join(r.ParamNames(), ","))
			}
			return tw.Flush()
		},
	}
}

func newMatchCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "match PATH",
		Short: "Show which route a path resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.quietRuntime()
			if err != nil {
				return err
			}
			nc, ok := rt.Router.Resolve(args[0])
			if !ok {
				return fmt.Errorf("%w: %s (would redirect to %s)", router.ErrRouteNotFound, args[0], rt.Config.Router.NotFoundPath)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "route:   %s\n", nc.Route.Pattern)
			fmt.Fprintf(out, "name:    %s\n", nc.Route.Name)
			fmt.Fprintf(out, "view:    %s\n", nc.Route.ViewID)
			if len(nc.Params) > 0 {
				fmt.Fprintf(out, "params:  %s\n", formatPairs(nc.Params))
			}
			if len(nc.Query) > 0 {
				fmt.Fprintf(out, "query:   %s\n", formatPairs(nc.Query))
			}
			return nil
		},
	}
}

func newURLCmd(g *globalFlags) *cobra.Command {
	var query []string
	cmd := &cobra.Command{
		Use:   "url NAME [KEY=VALUE...]",
		Short: "Build the URL of a named route",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := g.quietRuntime()
			if err != nil {
				return err
			}
			params, err := parsePairs(args[1:])
			if err != nil {
				return err
			}
			q, err := parsePairs(query)
			if err != nil {
				return err
			}
			u, err := rt.Router.BuildURL(args[0], router.Params(params), router.Query(q))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "Query parameter as KEY=VALUE (repeatable)")
	return cmd
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and build the runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := g.quietRuntime()
			if err != nil {
				return err
			}
			source := rt.Config.Source
			if source == "" {
				source = "built-in defaults"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (%d routes, history limit %d)\n",
				source, len(rt.Config.Routes), rt.Config.Store.HistoryLimit)
			return nil
		},
	}
}

func (g *globalFlags) quietRuntime() (*app.Runtime, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, app.WithLogger(quietLogger(), nil))
}

func parsePairs(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", a)
		}
		out[k] = v
	}
	return out, nil
}

func formatPairs[M ~map[string]string](m M) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, " ")
}
