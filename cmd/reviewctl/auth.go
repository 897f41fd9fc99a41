package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/krisalay/reviewhub-client/resource"
)

func newLoginCmd(a *app) *cobra.Command {
	var in resource.LoginInput
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("REVIEWHUB_PASSWORD")
			}
			u, err := a.client.Login().MutateAsync(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.print(u, func(w io.Writer) {
				fmt.Fprintf(w, "signed in as %s (%s)\n", u.Email, u.Role)
			})
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Password, "password", "", "account password (default $REVIEWHUB_PASSWORD)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.client.Logout().MutateAsync(cmd.Context(), struct{}{})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o := a.client.Me()
			defer o.Close()
			r, err := o.Await(cmd.Context())
			if err != nil {
				return err
			}
			if !r.HasData {
				return fmt.Errorf("not signed in")
			}
			u := r.Data
			return a.print(u, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s)\n", u.Email, u.Role)
			})
		},
	}
}
