package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/krisalay/reviewhub-client/resource"
)

func newReviewsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reviews",
		Aliases: []string{"r"},
		Short:   "Read and write reviews",
	}
	cmd.AddCommand(newReviewsListCmd(a), newReviewsCreateCmd(a))
	return cmd
}

func newReviewsListCmd(a *app) *cobra.Command {
	var (
		limit int
		pages int
	)
	cmd := &cobra.Command{
		Use:   "list <merchant-slug>",
		Short: "List a merchant's reviews, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			list := a.client.Reviews(args[0], limit)
			defer list.Close()

			for i := 0; i < pages; i++ {
				more, err := list.FetchNextPage(ctx)
				if err != nil {
					return err
				}
				if !more {
					break
				}
			}
			items := list.Items()
			return a.print(items, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RATING\tTITLE\tBY\tCOMMENTS")
				for _, r := range items {
					by := r.DisplayName
					if by == "" {
						by = "anonymous"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", strings.Repeat("*", r.Rating), r.Title, by, len(r.Comments))
				}
				_ = tw.Flush()
				if list.HasNextPage() {
					fmt.Fprintln(w, "\nmore reviews available, raise --pages")
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "reviews per page")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

func newReviewsCreateCmd(a *app) *cobra.Command {
	var in resource.CreateReviewInput
	cmd := &cobra.Command{
		Use:   "create <merchant-slug>",
		Short: "Post a review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in.MerchantSlug = args[0]

			// the API wants the merchant id, the user knows the slug
			if in.MerchantID == "" {
				o := a.client.Merchant(args[0])
				r, err := o.Await(ctx)
				o.Close()
				if err != nil {
					return err
				}
				in.MerchantID = r.Data.ID
			}

			rv, err := a.client.CreateReview().MutateAsync(ctx, in)
			if err != nil {
				return err
			}
			return a.print(rv, func(w io.Writer) {
				fmt.Fprintf(w, "review %s posted\n", rv.ID)
			})
		},
	}
	cmd.Flags().StringVar(&in.MerchantID, "merchant-id", "", "merchant id (looked up from the slug when empty)")
	cmd.Flags().StringVar(&in.Title, "title", "", "review title")
	cmd.Flags().IntVar(&in.Rating, "rating", 0, "rating from 1 to 5")
	cmd.Flags().StringVar(&in.Content, "content", "", "review text")
	cmd.Flags().StringVar(&in.DisplayName, "name", "", "display name")
	return cmd
}
