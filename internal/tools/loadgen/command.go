package loadgen

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/memberkit/credential-service/internal/observability"
	"github.com/memberkit/credential-service/internal/tools/common"
	"github.com/memberkit/credential-service/internal/tools/ui"
)

// drainGrace is added to --duration so in-flight requests can finish before
// the run times out.
const drainGrace = 15 * time.Second

type options struct {
	cfg       Config
	usernames string
	ci        bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Drive login and member-profile traffic against a running service",
	}
	f := cmd.PersistentFlags()
	f.StringVar(&opts.cfg.BaseURL, "base-url", "http://localhost:8080", "API base URL")
	f.StringVar(&opts.cfg.Profile, "profile", "mixed", "traffic profile: auth|members|mixed")
	f.DurationVar(&opts.cfg.Duration, "duration", 15*time.Second, "traffic duration")
	f.IntVar(&opts.cfg.RPS, "rps", 20, "requests per second")
	f.IntVar(&opts.cfg.Concurrency, "concurrency", 6, "concurrent workers")
	f.Int64Var(&opts.cfg.Seed, "seed", 42, "random seed")
	f.StringVar(&opts.usernames, "usernames", "admin", "comma-separated usernames to target")
	f.BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run load generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			cfg.Usernames = splitUsernames(opts.usernames)
			if _, err := generatorForProfile(cfg.Profile, cfg.Usernames); err != nil {
				return err
			}

			const title = "loadgen run"
			work := func(ctx context.Context) ([]string, error) {
				res, err := Run(ctx, cfg)
				if err != nil {
					return nil, err
				}
				return summary(res), nil
			}
			var (
				details []string
				err     error
			)
			if opts.ci {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration+drainGrace)
				details, err = work(ctx)
				cancel()
				common.PrintCIResult(err == nil, title, details, err)
			} else {
				details, err = ui.RunWithTimeout(title, cfg.Duration+drainGrace, work)
			}
			observability.RecordToolCommandRun(context.Background(), "loadgen", "run", common.Outcome(err))
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}

func summary(res Result) []string {
	return []string{
		fmt.Sprintf("total_requests=%d", res.TotalRequests),
		fmt.Sprintf("failures=%d", res.Failures),
		fmt.Sprintf("status_2xx=%d", res.Status2xx),
		fmt.Sprintf("status_4xx=%d", res.Status4xx),
		fmt.Sprintf("status_429=%d", res.Status429),
		fmt.Sprintf("status_5xx=%d", res.Status5xx),
	}
}

func splitUsernames(raw string) []string {
	var out []string
	for _, u := range strings.Split(raw, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
