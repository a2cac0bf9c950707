package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "oauth2-server",
		Short:         "oauth2-server is an RFC 6749 authorization server",
		SilenceErrors: true,
		SilenceUsage:  true,
		Example: `
  # In-memory storage with seeded clients (tests/dev only)
  OAUTH2_SEED_FILE=seed.yaml oauth2-server serve

  # Valkey storage with records sealed at rest
  OAUTH2_STORAGE=valkey OAUTH2_VALKEY_ADDR=localhost:6379 \
  OAUTH2_ENCRYPTION_KEY=$(oauth2-server gen-key) oauth2-server serve

  # Hash a client secret for a seed file
  echo -n s3cret | oauth2-server hash-secret
`,
	}

	cmd.AddCommand(
		newServeCommand(),
		newHashSecretCommand(),
		newGenKeyCommand(),
		newVersionCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
