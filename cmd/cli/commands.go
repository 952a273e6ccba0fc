package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	grpcserver "github.com/and161185/authgate/internal/server/grpc"
)

func newLoginCmd(cf *connFlags) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for an access token and save it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" || password == "" {
				return errors.New("need -u and -p")
			}
			ctx, cancel := callContext(cmd)
			defer cancel()

			cc, err := dial(cf, "")
			if err != nil {
				return err
			}
			defer cc.Close()

			tok, err := grpcserver.NewClient(cc).Login(ctx, username, password)
			if err != nil {
				return rpcError(err)
			}
			if err := saveToken(tok.AccessToken, tok.ExpiresAt); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			cmd.Println("ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

func newWhoamiCmd(cf *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Call the protected method with the saved token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}
			ctx, cancel := callContext(cmd)
			defer cancel()

			cc, err := dial(cf, token)
			if err != nil {
				return err
			}
			defer cc.Close()

			name, err := grpcserver.NewClient(cc).Protected(ctx)
			if err != nil {
				return rpcError(err)
			}
			cmd.Printf("Logged in as: %s\n", name)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.Remove(tokenPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			cmd.Println("ok")
			return nil
		},
	}
}

// rpcError strips the gRPC envelope so the user sees the server's message.
func rpcError(err error) error {
	if st, ok := status.FromError(err); ok {
		return fmt.Errorf("%s: %s", st.Code(), st.Message())
	}
	return err
}
