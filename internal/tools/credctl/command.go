package credctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memberkit/credential-service/internal/observability"
	"github.com/memberkit/credential-service/internal/security"
	"github.com/memberkit/credential-service/internal/tools/common"
	"github.com/memberkit/credential-service/internal/tools/ui"
)

var errMismatch = errors.New("password does not match hash")

type options struct {
	envFile   string
	algorithm string
	ci        bool
	stdin     io.Reader
}

func NewRootCommand() *cobra.Command {
	opts := &options{stdin: os.Stdin}
	cmd := &cobra.Command{Use: "credctl", Short: "Password hash and security token utilities"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.algorithm, "algorithm", "", "override HASH_ALGORITHM (argon2id|argon2i|bcrypt)")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(
		newHashCommand(opts),
		newVerifyCommand(opts),
		newNeedsRehashCommand(opts),
		newTokenCommand(opts),
	)
	return cmd
}

func newHashCommand(opts *options) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a password with the configured algorithm",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "hash", func(ctx context.Context) ([]string, error) {
				hasher, err := opts.hasher()
				if err != nil {
					return nil, err
				}
				pw, err := opts.password(password)
				if err != nil {
					return nil, err
				}
				encoded, err := hasher.HashPassword(pw)
				if err != nil {
					return nil, err
				}
				return []string{"algorithm: " + string(hasher.Algorithm()), "hash: " + encoded}, nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to hash (read from stdin when empty)")
	return cmd
}

func newVerifyCommand(opts *options) *cobra.Command {
	var password, encoded string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a password against a stored hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "verify", func(ctx context.Context) ([]string, error) {
				hasher, err := opts.hasher()
				if err != nil {
					return nil, err
				}
				pw, err := opts.password(password)
				if err != nil {
					return nil, err
				}
				return verify(hasher, pw, encoded)
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "candidate password (read from stdin when empty)")
	cmd.Flags().StringVar(&encoded, "hash", "", "stored hash")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}

func newNeedsRehashCommand(opts *options) *cobra.Command {
	var encoded string
	cmd := &cobra.Command{
		Use:   "needs-rehash",
		Short: "Report whether a stored hash is below the configured parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "needs-rehash", func(ctx context.Context) ([]string, error) {
				hasher, err := opts.hasher()
				if err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("needs_rehash=%t", hasher.NeedsRehash(encoded))}, nil
			})
		},
	}
	cmd.Flags().StringVar(&encoded, "hash", "", "stored hash")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}

func newTokenCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "token <reset|activation>",
		Short:     "Generate a reset or activation token",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"reset", "activation"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "token", func(ctx context.Context) ([]string, error) {
				return generateToken(security.NewTokenIssuer(), args[0])
			})
		},
	}
}

func verify(hasher *security.PasswordHasher, password, encoded string) ([]string, error) {
	if !hasher.VerifyPassword(password, encoded) {
		return nil, errMismatch
	}
	return []string{"match=true", fmt.Sprintf("needs_rehash=%t", hasher.NeedsRehash(encoded))}, nil
}

func generateToken(issuer *security.TokenIssuer, kind string) ([]string, error) {
	switch kind {
	case "reset":
		token, issuedAt, err := issuer.GenerateResetToken()
		if err != nil {
			return nil, err
		}
		return []string{"token: " + token, "issued_at: " + issuedAt.Format("2006-01-02T15:04:05Z")}, nil
	case "activation":
		token, err := issuer.GenerateActivationToken()
		if err != nil {
			return nil, err
		}
		return []string{"token: " + token}, nil
	default:
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}
}

func (o *options) hasher() (*security.PasswordHasher, error) {
	cfg, err := common.LoadConfig(o.envFile)
	if err != nil {
		return nil, err
	}
	pc := cfg.PasswordConfig()
	if o.algorithm != "" {
		pc.Algorithm = security.HashAlgorithm(strings.ToLower(o.algorithm))
	}
	return security.NewPasswordHasher(pc)
}

func (o *options) password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return readPassword(o.stdin)
}

func readPassword(r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("password is required")
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password is required")
	}
	return line, nil
}

func execute(opts *options, command string, fn func(context.Context) ([]string, error)) error {
	title := "credctl " + command
	var (
		details []string
		err     error
	)
	if opts.ci {
		details, err = fn(context.Background())
	} else {
		details, err = ui.Run(title, fn)
	}
	observability.RecordToolCommandRun(context.Background(), "credctl", command, common.Outcome(err))
	if opts.ci {
		common.PrintCIResult(err == nil, title, details, err)
	}
	if err != nil {
		if errors.Is(err, errMismatch) {
			os.Exit(1)
		}
		os.Exit(3)
	}
	return nil
}
