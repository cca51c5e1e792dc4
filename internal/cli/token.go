package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/class-booking/internal/booking"
	"github.com/iliyamo/class-booking/internal/utils"
)

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().Uint64("user", 0, "User id placed in the sub claim")
	tokenCmd.Flags().String("role", booking.RoleCustomer, "CUSTOMER, SELLER or ADMIN")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	tokenCmd.Flags().String("secret", "", "HS256 secret (default JWT_SECRET)")
	_ = tokenCmd.MarkFlagRequired("user")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for local testing",
	Long: `Sign an HS256 access token the API accepts. Identity is issued by an
external service in production; this command exists for development and
smoke tests.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func runToken(cmd *cobra.Command, _ []string) error {
	user, _ := cmd.Flags().GetUint64("user")
	role, _ := cmd.Flags().GetString("role")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		return errors.New("no secret: pass --secret or set JWT_SECRET")
	}
	if user == 0 {
		return errors.New("--user must be positive")
	}
	role = strings.ToUpper(role)
	switch role {
	case booking.RoleCustomer, booking.RoleSeller, booking.RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	tok, err := utils.NewAccessToken(secret, user, role, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", tok.Exp.Format(time.RFC3339))
	return nil
}
