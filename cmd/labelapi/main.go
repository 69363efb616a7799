// Command labelapi runs one label operation and prints the result as JSON for
// the web backend. Failures print {"error": "..."} and exit 1.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"s3labels/browse"
	"s3labels/config"
	"s3labels/service"
)

type opener func(ctx context.Context) (*service.Service, error)

func main() {
	cfg := config.Load()
	cfg.SetupLogging()

	open := func(ctx context.Context) (*service.Service, error) {
		backend, err := cfg.NewBackend(ctx)
		if err != nil {
			return nil, err
		}
		return service.New(backend), nil
	}
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, open))
}

func run(ctx context.Context, args []string, stdout io.Writer, open opener) int {
	root := newRootCmd(stdout, open)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	if err := root.ExecuteContext(ctx); err != nil {
		writeJSON(stdout, map[string]string{"error": service.HumanError(err)})
		return 1
	}
	return 0
}

func newRootCmd(stdout io.Writer, open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "labelapi",
		Short:         "List, search and fetch shipping labels as JSON",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	var order string
	list := &cobra.Command{
		Use:   "list <bucket> [<prefix>]",
		Short: "List folders and files one level under prefix",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := browse.ParseOrder(order)
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) > 1 {
				prefix = args[1]
			}

			svc, err := open(cmd.Context())
			if err != nil {
				return err
			}
			listing, err := svc.List(cmd.Context(), args[0], prefix, o)
			if err != nil {
				return err
			}
			return writeJSON(stdout, listing)
		},
	}
	list.Flags().StringVar(&order, "order", "name", "sort order: name or newest")

	search := &cobra.Command{
		Use:   "search <bucket> <prefix> <term>",
		Short: "Print the newest PNG under prefix whose key contains term, or null",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.SearchNewest(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return writeJSON(stdout, res)
		},
	}

	getImage := &cobra.Command{
		Use:   "get_image <bucket> <key>",
		Short: "Print a label as a PNG data URI with its size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open(cmd.Context())
			if err != nil {
				return err
			}
			img, err := svc.GetImage(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return writeJSON(stdout, img)
		},
	}

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Print the first-page object count of every bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := svc.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(stdout, map[string]any{"buckets": rows})
		},
	}

	root.AddCommand(list, search, getImage, summary)
	return root
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
