package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the user id of this profile and its share link",
	RunE:  runWhoami,
}

var redeemCmd = &cobra.Command{
	Use:   "redeem <code>",
	Short: "Redeem an access code for a fresh identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runRedeem,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User: %s\n", s.Identity.UserID())
	if codeType := s.Identity.CodeType(); codeType != "" {
		fmt.Fprintf(out, "Access: %s\n", codeType)
	}
	link, err := s.Identity.ShareLink(s.Config.ShareBaseURL)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Share: %s\n", link)
	return nil
}

func runRedeem(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	codeType, err := s.Identity.RedeemAccessCode(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to redeem access code: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Redeemed %s code, user is now %s\n", codeType, s.Identity.UserID())
	return nil
}
