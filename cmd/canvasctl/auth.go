package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/cliconfig"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/client"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.askCredentials(cmd, &email, &password); err != nil {
				return err
			}
			c := a.client()
			s, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return a.remember(cmd, s)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when empty)")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.askCredentials(cmd, &email, &password); err != nil {
				return err
			}
			if name == "" {
				name = email
			}
			s, err := a.client().Register(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}
			return a.remember(cmd, s)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when empty)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.Token = ""
			if err := cliconfig.Save(a.cfgPath, a.cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "  logged out")
			return nil
		},
	}
}

func (a *app) askCredentials(cmd *cobra.Command, email, password *string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	var err error
	if *email == "" {
		*email = a.cfg.Email
	}
	if *email == "" {
		if *email, err = prompt(in, out, "Email"); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = prompt(in, out, "Password"); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) remember(cmd *cobra.Command, s client.Session) error {
	a.cfg.Email = s.User.Email
	a.cfg.Token = s.Token
	if err := cliconfig.Save(a.cfgPath, a.cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  %s logged in as %s\n", statusIcon(true), brand.Sprint(s.User.DisplayName))
	return nil
}
