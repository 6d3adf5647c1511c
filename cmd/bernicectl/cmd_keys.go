package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/bernice-stories/bernice/internal/application/services"
	"github.com/bernice-stories/bernice/internal/infrastructure/security"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a JWT secret and a fresh signer key",
	Long: `Prints values for BERNICE_JWT_SECRET and BERNICE_SIGNER_KEY.

The signer key is a new secp256k1 key. Fund its address on the target
network before enabling contract writes.`,
	RunE: runKeygen,
}

var tokenUsername string

var tokenCmd = &cobra.Command{
	Use:   "token <address>",
	Short: "Issue a demo session token signed with BERNICE_JWT_SECRET",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "", "Display name carried in the token")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	secret, err := security.GenerateSecureKey(64)
	if err != nil {
		return err
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("failed to generate signer key: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "BERNICE_JWT_SECRET=%s\n", secret)
	fmt.Fprintf(out, "BERNICE_SIGNER_KEY=%s\n", hexutil.Encode(crypto.FromECDSA(key)))
	fmt.Fprintf(out, "# signer address: %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex())
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	settings, logger, err := loadSettings()
	if err != nil {
		return err
	}
	if settings.JWTSecret == "" {
		return fmt.Errorf("BERNICE_JWT_SECRET must be set so the server accepts the token")
	}

	auth, err := services.NewAuthService(settings.JWTSecret, logger)
	if err != nil {
		return err
	}
	session, err := auth.IssueSession(args[0], tokenUsername)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), session)
}
