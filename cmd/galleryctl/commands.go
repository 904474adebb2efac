package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/abduss/imgbed/internal/gallery"
)

type opener func(ctx context.Context) (*gallery.Store, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "galleryctl",
		Short:         "Inspect and edit the imgbed catalog",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		listCmd(open),
		categoriesCmd(open),
		deleteCmd(open),
		setCategoryCmd(open),
		renameCategoryCmd(open),
		deleteCategoryCmd(open),
	)
	return root
}

func listCmd(open opener) *cobra.Command {
	var (
		category string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog records, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			records, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if category != "" {
				filtered := records[:0]
				for _, rec := range records {
					if rec.Category == category {
						filtered = append(filtered, rec)
					}
				}
				records = filtered
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFILE\tSIZE\tUPLOADED\tCATEGORY\tURL")
			for _, rec := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", rec.ID, rec.FileName, rec.Size, rec.UploadTime, rec.Category, rec.URL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only show records in this category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func categoriesCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show categories with their record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			counts, err := store.Categories(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tCOUNT")
			for _, c := range counts {
				fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Count)
			}
			return tw.Flush()
		},
	}
}

func deleteCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a record from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			total, err := store.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s, %d records left\n", args[0], total)
			return nil
		},
	}
}

func setCategoryCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "set-category ID CATEGORY",
		Short: "Move one record to a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			category, err := store.SetCategory(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], category)
			return nil
		},
	}
}

func renameCategoryCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-category FROM TO",
		Short: "Rename a category across every record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			updated, err := store.RenameCategory(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d records\n", updated)
			return nil
		},
	}
}

func deleteCategoryCmd(open opener) *cobra.Command {
	var replacement string
	cmd := &cobra.Command{
		Use:   "delete-category NAME",
		Short: "Move every record out of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			moved, to, err := store.DeleteCategory(cmd.Context(), args[0], replacement)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved %d records to %s\n", moved, to)
			return nil
		},
	}
	cmd.Flags().StringVar(&replacement, "replacement", gallery.DefaultCategory, "Category that receives the records")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
