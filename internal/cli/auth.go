package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"patas/internal/session"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and persist the session",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if code := runLogin(ctx, os.Stdout); code != 0 {
			os.Exit(code)
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the persisted session",
	Run: func(cmd *cobra.Command, args []string) {
		if code := runLogout(os.Stdout); code != 0 {
			os.Exit(code)
		}
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session state",
	Run: func(cmd *cobra.Command, args []string) {
		if code := runWhoami(os.Stdout); code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password")
	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(ctx context.Context, w io.Writer) int {
	a := newApp()

	if err := a.session.Login(ctx, session.LoginRequest{
		Username: loginUsername,
		Password: loginPassword,
	}); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	fmt.Fprintln(w, "Logged in.")
	return 0
}

func runLogout(w io.Writer) int {
	a := newApp()
	a.session.Logout()
	fmt.Fprintln(w, "Logged out.")
	return 0
}

func runWhoami(w io.Writer) int {
	a := newApp()
	state := a.session.Snapshot()

	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]any{
			"status":             state.Status,
			"access_expires_at":  expiryOrNil(state, func(p session.TokenPair) time.Time { return p.AccessExpiresAt }),
			"refresh_expires_at": expiryOrNil(state, func(p session.TokenPair) time.Time { return p.RefreshExpiresAt }),
		}, "", "  ")
		fmt.Fprintln(w, string(data))
		return 0
	}

	if state.Status != session.StatusAuthenticated {
		fmt.Fprintln(w, "Not logged in.")
		return 0
	}
	fmt.Fprintf(w, "Authenticated.\nAccess token expires:  %s\nRefresh token expires: %s\n",
		state.Tokens.AccessExpiresAt.Local().Format(time.RFC1123),
		state.Tokens.RefreshExpiresAt.Local().Format(time.RFC1123),
	)
	return 0
}

func expiryOrNil(state session.State, pick func(session.TokenPair) time.Time) any {
	if state.Status != session.StatusAuthenticated {
		return nil
	}
	return pick(*state.Tokens).Format(time.RFC3339)
}
