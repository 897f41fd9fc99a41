package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/krisalay/reviewhub-client/resource"
)

func newMerchantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "merchants",
		Aliases: []string{"m"},
		Short:   "Browse merchants",
	}
	cmd.AddCommand(newMerchantsListCmd(a), newMerchantsGetCmd(a))
	return cmd
}

func newMerchantsListCmd(a *app) *cobra.Command {
	var (
		f   resource.MerchantFilter
		all bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List merchants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f.ExcludeDrafts = true

			if !all {
				o := a.client.Merchants(f)
				defer o.Close()
				r, err := o.Await(ctx)
				if err != nil {
					return err
				}
				return a.print(r.Data, func(w io.Writer) {
					writeMerchants(w, r.Data.Merchants)
					p := r.Data.Pagination
					fmt.Fprintf(w, "\npage %d of %d (%d merchants)\n", p.Page, p.Pages, p.Total)
				})
			}

			list := a.client.MerchantList(f)
			defer list.Close()
			for {
				more, err := list.FetchNextPage(ctx)
				if err != nil {
					return err
				}
				if !more {
					break
				}
			}
			items := list.Items()
			return a.print(items, func(w io.Writer) { writeMerchants(w, items) })
		},
	}
	cmd.Flags().IntVar(&f.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.Limit, "limit", resource.DefaultPageSize, "merchants per page")
	cmd.Flags().StringVar(&f.Category, "category", "", "filter by category")
	cmd.Flags().StringVar(&f.Search, "search", "", "search text")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	return cmd
}

func newMerchantsGetCmd(a *app) *cobra.Command {
	var visit bool
	cmd := &cobra.Command{
		Use:   "get <slug>",
		Short: "Show one merchant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := a.client.Merchant(args[0])
			defer o.Close()
			r, err := o.Await(cmd.Context())
			if err != nil {
				return err
			}
			if visit {
				a.client.RecordVisit(args[0])
			}
			m := r.Data
			return a.print(m, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "Name:\t%s\n", m.Name)
				fmt.Fprintf(tw, "Slug:\t%s\n", m.Slug)
				fmt.Fprintf(tw, "Category:\t%s\n", m.Category)
				fmt.Fprintf(tw, "Address:\t%s\n", m.Address)
				fmt.Fprintf(tw, "Rating:\t%.1f (%d reviews)\n", m.AverageRating, m.ReviewCount)
				fmt.Fprintf(tw, "Visits:\t%d\n", m.VisitCount)
				_ = tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&visit, "visit", false, "also record a visit")
	return cmd
}

func writeMerchants(w io.Writer, ms []resource.Merchant) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME\tCATEGORY\tRATING\tREVIEWS")
	for _, m := range ms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%d\n", m.Slug, m.Name, m.Category, m.AverageRating, m.ReviewCount)
	}
	_ = tw.Flush()
}

func newVisitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "visit <slug>",
		Short: "Record a visit to a merchant page",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if !a.client.RecordVisit(args[0]) {
				return fmt.Errorf("visit for %q was dropped", args[0])
			}
			return nil
		},
	}
}
