// Command devtoken mints signed access tokens for local development against
// the menupro API. It needs the RSA private key the API's public key pairs with.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"menupro-service/internal/pkg/jwt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var osExit = os.Exit

type options struct {
	privPath   string
	pubPath    string
	issuer     string
	audience   string
	kid        string
	ttl        time.Duration
	identityID int64
	roles      string
	device     string
	verify     bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Mint a signed access token for local development",
		Long: `Mint an RS256 access token accepted by the menupro API.

Use --roles admin to call the /api/v1/admin routes, or the default
restaurant_owner role together with the owner's identity id.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mint(out, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.privPath, "private-key", envOr("JWT_PRIVATE_KEY_PATH", ""), "path to the RSA private key (PEM)")
	flags.StringVar(&opts.pubPath, "public-key", envOr("JWT_PUBLIC_KEY_PATH", ""), "path to the RSA public key (PEM)")
	flags.StringVar(&opts.issuer, "issuer", envOr("JWT_ISSUER", "menupro-auth"), "token issuer")
	flags.StringVar(&opts.audience, "audience", envOr("JWT_AUDIENCE", "menupro-api"), "token audience")
	flags.StringVar(&opts.kid, "kid", envOr("JWT_KID", "menupro-key"), "key id header")
	flags.DurationVar(&opts.ttl, "ttl", 24*time.Hour, "token lifetime")
	flags.Int64Var(&opts.identityID, "identity", 0, "identity id the token is issued for")
	flags.StringVar(&opts.roles, "roles", jwt.RoleOwner, "comma separated roles")
	flags.StringVar(&opts.device, "device", "devtoken", "device label")
	flags.BoolVar(&opts.verify, "verify", true, "verify the minted token with the public key")
	_ = cmd.MarkFlagRequired("identity")

	return cmd
}

func mint(out io.Writer, opts *options) error {
	if opts.identityID <= 0 {
		return fmt.Errorf("--identity must be a positive id")
	}
	if opts.privPath == "" || opts.pubPath == "" {
		return fmt.Errorf("both --private-key and --public-key are required")
	}

	manager, err := jwt.LoadAndBuild(jwt.Config{
		PrivPath: opts.privPath,
		PubPath:  opts.pubPath,
		Issuer:   opts.issuer,
		Audience: opts.audience,
		TTL:      opts.ttl,
		KID:      opts.kid,
	})
	if err != nil {
		return err
	}

	token, jti, err := manager.Generator.GenerateAccessToken(opts.identityID, splitRoles(opts.roles), opts.device)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	if opts.verify {
		if _, err := manager.Verifier.VerifyAccessToken(token); err != nil {
			return fmt.Errorf("minted token does not verify: %w", err)
		}
	}

	fmt.Fprintf(out, "jti:   %s\n", jti)
	fmt.Fprintf(out, "token: %s\n", token)
	return nil
}

func splitRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		osExit(1)
	}
}
