package main

import (
	"github.com/spf13/cobra"

	"github.com/atinyakov/issuetracker/internal/client/session"
)

// askIfEmpty returns value, prompting for it when empty.
func (c *cli) askIfEmpty(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return c.prompt.Line(label)
}

func (c *cli) registerCmd() *cobra.Command {
	var username, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if username, err = c.askIfEmpty(username, "Username"); err != nil {
				return err
			}
			if email, err = c.askIfEmpty(email, "Email"); err != nil {
				return err
			}
			password, err := c.prompt.Password("Password")
			if err != nil {
				return err
			}

			if err := c.connect(); err != nil {
				return err
			}
			user, err := c.sess.Register(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			c.ui.Success("Registered and signed in as %s", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted when omitted)")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email (prompted when omitted)")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email, err = c.askIfEmpty(email, "Email"); err != nil {
				return err
			}
			password, err := c.prompt.Password("Password")
			if err != nil {
				return err
			}

			if err := c.connect(); err != nil {
				return err
			}
			user, err := c.sess.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			c.ui.Success("Signed in as %s", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email (prompted when omitted)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.connect(); err != nil {
				return err
			}
			state, err := c.sess.Restore(cmd.Context())
			if err != nil {
				return err
			}
			if state != session.Authenticated {
				c.ui.Info("Not logged in")
				return nil
			}
			if err := c.sess.Logout(cmd.Context()); err != nil {
				return err
			}
			c.ui.Success("Logged out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.connect(); err != nil {
				return err
			}
			state, err := c.sess.Restore(cmd.Context())
			if err != nil {
				return err
			}
			user, ok := c.sess.User()
			if state != session.Authenticated || !ok {
				c.ui.Info("Not logged in")
				return nil
			}
			c.ui.RenderUser(user)
			return nil
		},
	}
}
