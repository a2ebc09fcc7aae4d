package cli

import (
	"fmt"

	h "github.com/fjod/go_shop/internal/http"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	sessionUser  string
	sessionAdmin bool
)

// sessionCmd issues bearer tokens for operators. Login lives outside this service.
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Issue a bearer token for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if sessionUser == "" {
			return fmt.Errorf("--user is required")
		}

		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer client.Close()

		role := h.RoleUser
		if sessionAdmin {
			role = h.RoleAdmin
		}

		token, err := h.NewRedisTokenVerifier(client).Issue(cmd.Context(), h.Principal{UserID: sessionUser, Role: role}, cfg.SessionTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	sessionCmd.Flags().StringVar(&sessionUser, "user", "", "user id the token is issued for")
	sessionCmd.Flags().BoolVar(&sessionAdmin, "admin", false, "grant the admin role")
}
