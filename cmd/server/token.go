package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/smartpark/internal/utils"
)

func tokenCmd() *cobra.Command {
	var (
		role    string
		subject string
		ttl     int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a guard booth or an occupancy sensor",
		Long: `Issue an access token signed with JWT_SECRET.

Sensors use it on POST /v1/occupancy; guard tools can use it instead of
exchanging the booth passcode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			role = strings.ToUpper(role)
			if role != utils.RoleGuard && role != utils.RoleSensor {
				return fmt.Errorf("role must be %s or %s", utils.RoleGuard, utils.RoleSensor)
			}
			tok, err := utils.NewAccessToken(secret, subject, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", tok.Exp.Format("2006-01-02 15:04 MST"))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", utils.RoleSensor, "GUARD or SENSOR")
	cmd.Flags().StringVar(&subject, "subject", "sensor", "token subject (booth or device name)")
	cmd.Flags().IntVar(&ttl, "ttl", 60*24*30, "lifetime in minutes")
	return cmd
}

func hashPasscodeCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-passcode [passcode]",
		Short: "Print the bcrypt hash for GUARD_PASSCODE_HASH",
		Long:  "Print the bcrypt hash of a guard passcode. Without an argument the passcode is read from stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read passcode: %w", err)
				}
				plain = strings.TrimRight(line, "\r\n")
			}
			hash, err := utils.HashPasscode(plain, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 12, "bcrypt cost")
	return cmd
}
