package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

const callTimeout = 30 * time.Second

// connFlags are the persistent connection flags shared by every command.
type connFlags struct {
	addr      string
	caPath    string
	insecure  bool
	plaintext bool
}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cf := &connFlags{}
	cmd := &cobra.Command{
		Use:           "authctl",
		Short:         "AuthGate command line client",
		Long:          "authctl logs in to an AuthGate server over gRPC and calls protected methods with the saved token.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cf.addr, "addr", "localhost:8443", "server address")
	pf.StringVar(&cf.caPath, "cacert", "", "CA certificate (PEM)")
	pf.BoolVar(&cf.insecure, "insecure", false, "skip TLS certificate verification (dev)")
	pf.BoolVar(&cf.plaintext, "plaintext", false, "connect without TLS (dev)")

	cmd.AddCommand(newLoginCmd(cf))
	cmd.AddCommand(newWhoamiCmd(cf))
	cmd.AddCommand(newLogoutCmd())

	return cmd
}

func callContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, callTimeout)
}
