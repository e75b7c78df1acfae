package main

import (
	"context"
	"fmt"
	"os"

	"acrevista-api/bootstrap"
	"acrevista-api/models"
	"acrevista-api/services"
	"acrevista-api/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "acrevista-admin",
	Short:         "Maintenance commands for the journal service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// withApp runs fn against a fully wired application.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	app, cleanup, err := bootstrap.NewApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, app)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, app *bootstrap.App) error {
			if err := models.AutoMigrate(app.DB); err != nil {
				return err
			}
			app.Logger.Info("database migrated")
			return nil
		})
	},
}

var staffInput services.RegisterInput

var createStaffCmd = &cobra.Command{
	Use:   "create-staff",
	Short: "Register a staff account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			user, err := app.Services.Accounts.CreateStaff(ctx, staffInput)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created staff user %d <%s>\n", user.UserID, user.Email)
			return nil
		})
	},
}

var tokenEmail string

// generateTokenCmd mails a login link. A delivery failure fails the command
// and leaves no token behind.
var generateTokenCmd = &cobra.Command{
	Use:   "generate-token",
	Short: "Issue a login token for a user and email the login link",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			user, err := app.Services.Accounts.GetUserByEmail(ctx, tokenEmail)
			if err != nil {
				return fmt.Errorf("find user %s: %w", tokenEmail, err)
			}
			token, err := app.Services.Tokens.IssueAndSend(ctx, user)
			if err != nil {
				return err
			}
			app.Logger.Info("login token issued",
				zap.Int("user_id", user.UserID),
				zap.Time("expiry_date", token.ExpiryDate),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "token for %s sent, valid until %s\n", user.Email, token.ExpiryDate.Format("2006-01-02 15:04"))
			return nil
		})
	},
}

var passwordEmail, passwordValue string

var setPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Replace a user's password",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			if ok, msg := utils.ValidatePassword(passwordValue); !ok {
				return fmt.Errorf("password rejected: %s", msg)
			}
			user, err := app.Services.Accounts.GetUserByEmail(ctx, passwordEmail)
			if err != nil {
				return fmt.Errorf("find user %s: %w", passwordEmail, err)
			}
			if err := app.Services.Accounts.SetPassword(ctx, user, passwordValue); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", user.Email)
			return nil
		})
	},
}

var purgeTokensCmd = &cobra.Command{
	Use:   "purge-tokens",
	Short: "Delete expired login tokens",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			n, err := app.Services.Tokens.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired tokens\n", n)
			return nil
		})
	},
}

func init() {
	createStaffCmd.Flags().StringVar(&staffInput.Email, "email", "", "email address, also the username")
	createStaffCmd.Flags().StringVar(&staffInput.Password, "password", "", "initial password")
	createStaffCmd.Flags().StringVar(&staffInput.FirstName, "first", "", "first name")
	createStaffCmd.Flags().StringVar(&staffInput.LastName, "last", "", "last name")
	_ = createStaffCmd.MarkFlagRequired("email")
	_ = createStaffCmd.MarkFlagRequired("password")

	generateTokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email of the user")
	_ = generateTokenCmd.MarkFlagRequired("email")

	setPasswordCmd.Flags().StringVar(&passwordEmail, "email", "", "email of the user")
	setPasswordCmd.Flags().StringVar(&passwordValue, "password", "", "new password")
	_ = setPasswordCmd.MarkFlagRequired("email")
	_ = setPasswordCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(migrateCmd, createStaffCmd, generateTokenCmd, setPasswordCmd, purgeTokensCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
