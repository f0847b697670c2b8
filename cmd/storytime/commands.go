package main

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Fallen-6121995/storytime-go/internal/auth"
	"github.com/Fallen-6121995/storytime-go/internal/models"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, d *deps) error {
				user, err := d.Auth.Login(ctx, models.Credentials{Email: email, Password: password})
				if err != nil {
					pterm.Error.Println(auth.FriendlyMessage(err))
					return err
				}
				if user != nil {
					pterm.Success.Printfln("Logged in as %s", user.Email)
				} else {
					pterm.Success.Println("Logged in")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, d *deps) error {
				resp, err := d.Auth.Register(ctx, models.Credentials{Email: email, Password: password, Name: name})
				if err != nil {
					pterm.Error.Println(auth.FriendlyMessage(err))
					return err
				}
				if resp.Message != "" {
					pterm.Success.Println(resp.Message)
				} else {
					pterm.Success.Println("Account created")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newGuestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Start a device-bound guest session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, d *deps) error {
				user, err := d.Auth.RegisterGuest(ctx)
				if err != nil {
					pterm.Error.Println(auth.FriendlyMessage(err))
					return err
				}
				if user != nil {
					pterm.Success.Printfln("Guest session started (user %s)", user.ID)
				} else {
					pterm.Success.Println("Guest session started")
				}
				return nil
			})
		},
	}
}

func newUpgradeCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade the current guest session to a full account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, d *deps) error {
				if _, err := d.Auth.UpgradeGuestAccount(ctx, models.Credentials{Email: email, Password: password, Name: name}); err != nil {
					pterm.Error.Println(auth.FriendlyMessage(err))
					return err
				}
				pterm.Success.Println("Account upgraded")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, d *deps) error {
				if err := d.Auth.Logout(ctx); err != nil {
					return err
				}
				pterm.Success.Println("Logged out")
				return nil
			})
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, d *deps) error {
				var user *models.UserProfile
				if remote {
					user = d.Auth.FetchUserDetails(ctx)
				} else {
					user = d.Auth.CurrentUser(ctx)
				}
				if user == nil {
					pterm.Warning.Println("No user available")
					return nil
				}

				kind := "account"
				if user.IsGuest {
					kind = "guest"
				}
				pterm.Info.Printfln("%s (%s, id %s)", displayName(user), kind, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Fetch fresh details from the server")
	return cmd
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a token refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, d *deps) error {
				if _, err := d.Auth.RefreshToken(ctx); err != nil {
					pterm.Error.Println(auth.FriendlyMessage(err))
					return err
				}
				pterm.Success.Println("Tokens refreshed")
				return nil
			})
		},
	}
}

func newLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch",
		Short: "Run the launch sequence and print the chosen route",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, d *deps) error {
				route := d.Router.Decide(ctx)
				pterm.Info.Printfln("Initial route: %s", route)
				return nil
			})
		},
	}
}

func newOnboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Mark onboarding as completed on this install",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, d *deps) error {
				if err := d.Sessions.SetOnboardingComplete(ctx); err != nil {
					return err
				}
				pterm.Success.Println("Onboarding marked complete")
				return nil
			})
		},
	}
}

func displayName(user *models.UserProfile) string {
	switch {
	case user.Name != "":
		return user.Name
	case user.Email != "":
		return user.Email
	default:
		return fmt.Sprintf("user %s", user.ID)
	}
}
