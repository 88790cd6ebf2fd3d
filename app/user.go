package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/daemon"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

func init() { //nolint: gochecknoinits
	userCreateCmd.Flags().StringVar(&userFlags.username, "username", "", "Login name")
	userCreateCmd.Flags().StringVar(&userFlags.email, "email", "", "Email address")
	userCreateCmd.Flags().StringVar(&userFlags.password, "password", "", "Password (local account)")
	userCreateCmd.Flags().StringVar(&userFlags.role, "role", string(rbac.DefaultRole), "Role: admin, moderator, editor or user")
	userCreateCmd.Flags().StringVar(&userFlags.barangay, "barangay", "", "Barangay of a moderator")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userRoleCmd.Flags().StringVar(&userFlags.username, "username", "", "Login name")
	userRoleCmd.Flags().StringVar(&userFlags.role, "role", "", "Role: admin, moderator, editor or user")
	userRoleCmd.Flags().StringVar(&userFlags.barangay, "barangay", "", "Barangay of a moderator")
	_ = userRoleCmd.MarkFlagRequired("username")
	_ = userRoleCmd.MarkFlagRequired("role")

	userCmd.AddCommand(userCreateCmd, userRoleCmd)
	rootCmd.AddCommand(userCmd)
}

var (
	userFlags struct {
		username string
		email    string
		password string
		role     string
		barangay string
	}

	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage portal accounts",
	}

	userCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a local account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := rbac.ParseRole(userFlags.role)
			if err != nil {
				return err
			}

			cfg, err := loadConfigAndLogger()
			if err != nil {
				return err
			}

			db, err := daemon.OpenDB(&cfg)
			if err != nil {
				return err
			}

			u, err := user.Create(context.Background(), db, user.Input{
				Username: userFlags.username,
				Email:    userFlags.email,
				Password: userFlags.password,
				Role:     role,
				Barangay: userFlags.barangay,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, role %s)\n", u.Username, u.ID, u.Role)

			if rbac.NeedsBarangayWarning(u) {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: moderator has no barangay assigned")
			}

			return nil
		},
	}

	userRoleCmd = &cobra.Command{
		Use:   "role",
		Short: "Change the role and barangay of an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := rbac.ParseRole(userFlags.role)
			if err != nil {
				return err
			}

			cfg, err := loadConfigAndLogger()
			if err != nil {
				return err
			}

			db, err := daemon.OpenDB(&cfg)
			if err != nil {
				return err
			}

			ctx := context.Background()

			u, err := user.GetByUsername(ctx, db, userFlags.username)
			if err != nil {
				return err
			}

			u, err = user.SetRole(ctx, db, u.ID, role, userFlags.barangay)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user %s is now %s\n", u.Username, u.Role)

			if rbac.NeedsBarangayWarning(u) {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: moderator has no barangay assigned")
			}

			return nil
		},
	}
)
