package command

import (
	"fmt"

	"reviewhub/internal/microservices/http-api/repository"
	"reviewhub/internal/microservices/http-api/service"

	"github.com/spf13/cobra"
)

var (
	superuserName  string
	superuserEmail string
)

var createSuperuserCmd = &cobra.Command{
	Use:   "create-superuser",
	Short: "Create a staff account, or raise an existing one to staff",
	Long: `Creates the account with is_staff set, or sets is_staff on an existing account
with the same username and email. Staff accounts pass every admin check.
The user signs in through the normal /auth/signup and /auth/token handshake.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		users := service.NewUserService(repository.NewUserRepository(e.db))
		user, created, err := users.EnsureSuperuser(cmd.Context(), superuserName, superuserEmail)
		if err != nil {
			return fmt.Errorf("create superuser: %w", err)
		}

		if created {
			cmd.Printf("✓ Superuser %s <%s> created\n", user.Username, user.Email)
		} else {
			cmd.Printf("✓ %s is now staff\n", user.Username)
		}
		return nil
	},
}

func init() {
	createSuperuserCmd.Flags().StringVar(&superuserName, "username", "", "username of the account")
	createSuperuserCmd.Flags().StringVar(&superuserEmail, "email", "", "email of the account")
	_ = createSuperuserCmd.MarkFlagRequired("username")
	_ = createSuperuserCmd.MarkFlagRequired("email")
}
