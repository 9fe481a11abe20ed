package command

import (
	"fmt"

	"reviewhub/internal/microservices/http-api/repository"
	"reviewhub/internal/microservices/http-api/service"

	"github.com/spf13/cobra"
)

var setRoleCmd = &cobra.Command{
	Use:       "set-role <username> <user|moderator|admin>",
	Short:     "Change a user's role",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"user", "moderator", "admin"},
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		users := service.NewUserService(repository.NewUserRepository(e.db))
		user, err := users.SetRole(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("set role: %w", err)
		}
		cmd.Printf("✓ %s is now %s\n", user.Username, user.Role)
		return nil
	},
}
