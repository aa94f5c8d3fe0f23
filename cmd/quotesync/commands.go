package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotesync/internal/adapters/export"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// withComponents builds the application for a one-shot command, streams its
// notifications to stderr while fn runs, and closes it afterwards.
func withComponents(cmd *cobra.Command, c *cli, opts buildOptions, fn func(ctx context.Context, comp *components) error) error {
	ctx := cmd.Context()

	comp, err := build(ctx, c.cfg, c.logger, opts)
	if err != nil {
		return err
	}

	subCtx, cancel := context.WithCancel(ctx)
	feed := comp.notifier.Subscribe(subCtx)

	var wg sync.WaitGroup
	wg.Go(func() {
		for n := range feed {
			renderNotification(cmd.ErrOrStderr(), n)
		}
	})

	err = fn(ctx, comp)

	// Close waits for background publishes, whose notifications must still print.
	comp.Close(ctx)
	cancel()
	wg.Wait()

	return err
}

func newSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "sync",
		GroupID: "server",
		Short:   "Run one sync cycle against the remote collection",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd, c, buildOptions{}, func(ctx context.Context, comp *components) error {
				result, err := comp.coordinator.Sync(ctx, domain.TriggerManual)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "fetched %d, merged %d in %s\n", result.Fetched, len(result.Merged), result.Duration.Round(time.Millisecond))

				for _, q := range result.Merged {
					renderQuote(out, q)
				}

				return nil
			})
		},
	}
}

func newAddCmd(c *cli) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:     "add <text>",
		GroupID: "quotes",
		Short:   "Add a quote and publish it to the remote collection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd, c, buildOptions{}, func(ctx context.Context, comp *components) error {
				q, err := comp.service.Create(ctx, args[0], category)
				if err != nil {
					return err
				}

				renderQuote(cmd.OutOrStdout(), q)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category of the quote (required)")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func newRandomCmd(c *cli) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:     "random",
		GroupID: "quotes",
		Short:   "Show a random quote from the selected or given category",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd, c, buildOptions{}, func(ctx context.Context, comp *components) error {
				q, err := comp.service.Random(ctx, category)
				if domain.IsNotFound(err) {
					fmt.Fprintln(cmd.OutOrStdout(), emptyStyle.Render("No quotes in this category."))
					return nil
				}

				if err != nil {
					return err
				}

				renderQuote(cmd.OutOrStdout(), q)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", `category to pick from; becomes the selection ("all" for every quote)`)

	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "quotes",
		Short:   "List quotes, optionally filtered by category",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd, c, buildOptions{}, func(ctx context.Context, comp *components) error {
				renderQuoteList(cmd.OutOrStdout(), comp.service.List(ctx, category), category)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "only list quotes in this category")

	return cmd
}

func newCategoriesCmd(c *cli) *cobra.Command {
	var selectCategory string

	cmd := &cobra.Command{
		Use:     "categories",
		GroupID: "quotes",
		Short:   "List categories and the current selection",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd, c, buildOptions{}, func(ctx context.Context, comp *components) error {
				if cmd.Flags().Changed("select") {
					if err := comp.service.SetSelectedCategory(ctx, selectCategory); err != nil {
						return err
					}
				}

				renderCategories(cmd.OutOrStdout(), comp.service.Categories(ctx), comp.service.SelectedCategory(ctx))

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&selectCategory, "select", "", "persist this category as the selection")

	return cmd
}

func newExportCmd(c *cli) *cobra.Command {
	var (
		out    string
		bucket bool
	)

	cmd := &cobra.Command{
		Use:     "export",
		GroupID: "quotes",
		Short:   "Export every quote as pretty-printed JSON",
		Long: `Export writes the collection to every configured destination: the export
directory and, when enabled or requested with --bucket, the object storage
bucket. --out writes a single file instead; "-" writes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd, c, buildOptions{forceBucket: bucket}, func(ctx context.Context, comp *components) error {
				if out == "" {
					locations, err := comp.service.ExportToSinks(ctx)
					if err != nil {
						return err
					}

					for _, loc := range locations {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", loc.Sink, loc.Location)
					}

					return nil
				}

				body, err := comp.service.Export(ctx)
				if err != nil {
					return err
				}

				if out == "-" {
					_, err := cmd.OutOrStdout().Write(append(body, '\n'))
					return err
				}

				loc, err := export.NewFileSink(filepath.Dir(out)).
					Write(ctx, filepath.Base(out), bytes.NewReader(body), int64(len(body)))
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "file: %s\n", loc)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", `write to this path only ("-" for stdout)`)
	cmd.Flags().BoolVar(&bucket, "bucket", false, "also upload to the configured export bucket")

	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "import <file>",
		GroupID: "quotes",
		Short:   `Import a JSON array of {"text", "category"} objects ("-" for stdin)`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			return withComponents(cmd, c, buildOptions{}, func(ctx context.Context, comp *components) error {
				n, err := comp.service.Import(ctx, payload)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "imported %d quote(s)\n", n)

				return nil
			})
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}

	data, err := os.ReadFile(path) //nolint:gosec // user-supplied path is the point
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return data, nil
}
