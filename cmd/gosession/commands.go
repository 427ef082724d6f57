package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/spf13/cobra"
)

type stateOutput struct {
	IsLoggedIn          bool               `json:"isLoggedIn"`
	UserVotesAndRatings goSession.Snapshot `json:"userVotesAndRatings"`
}

func (a *app) loginCmd() *cobra.Command {
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "login [token]",
		Short: "Persist a bearer token and load the votes snapshot",
		Long: `Stores the token under the "jwt" key, marks the session logged in and
fetches the user's votes and ratings. If the fetch fails the token stays
stored and the command exits non-zero.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readToken(cmd.InOrStdin(), args, fromStdin)
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.release()

			ctx := goSession.WithCaller(cmd.Context(), "cli")
			loginErr := s.store.Login(ctx, token)
			if errors.Is(loginErr, goSession.ErrInvalidCredential) {
				return loginErr
			}
			if err := a.printState(cmd.OutOrStdout(), s.store); err != nil {
				return err
			}
			return describeError(loginErr)
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "token-stdin", false, "read the token from stdin")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token and clear the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.release()

			if err := s.store.Logout(goSession.WithCaller(cmd.Context(), "cli")); err != nil {
				return err
			}
			return a.printState(cmd.OutOrStdout(), s.store)
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check for a stored token and refresh the snapshot if present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.release()

			checkErr := s.store.CheckLoginStatus(goSession.WithCaller(cmd.Context(), "cli"))
			if err := a.printState(cmd.OutOrStdout(), s.store); err != nil {
				return err
			}
			return describeError(checkErr)
		},
	}
}

func (a *app) fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the user's votes and ratings with the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.release()

			snap, err := s.store.FetchUserVotesAndRatings(goSession.WithCaller(cmd.Context(), "cli"))
			if err != nil {
				return describeError(err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
}

func (a *app) tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Show the stored token's claims without contacting the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.release()

			info, err := s.store.TokenInfo(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return json.NewEncoder(out).Encode(info)
			}
			switch {
			case !info.Present:
				_, err = fmt.Fprintln(out, "no token stored")
			case !info.JWT:
				_, err = fmt.Fprintln(out, "opaque token stored")
			default:
				_, err = fmt.Fprintf(out, "subject:  %s\nissuer:   %s\nexpires:  %s\nexpired:  %t\nverified: %t\n",
					info.Subject, info.Issuer, formatTime(info.ExpiresAt), info.Expired, info.Verified)
			}
			return err
		},
	}
}

func (a *app) printState(w io.Writer, store *goSession.Store) error {
	st := stateOutput{IsLoggedIn: store.IsLoggedIn(), UserVotesAndRatings: store.Snapshot()}
	if a.jsonOutput {
		return json.NewEncoder(w).Encode(st)
	}
	status := "logged out"
	if st.IsLoggedIn {
		status = "logged in"
	}
	c := st.UserVotesAndRatings.Counts()
	_, err := fmt.Fprintf(w, "%s (result votes: %d, warning votes: %d, result ratings: %d, warning ratings: %d)\n",
		status, c["resultVotes"], c["warningVotes"], c["resultRatings"], c["warningRatings"])
	return err
}

// describeError tags API and network errors with the request id so the
// failure can be matched against server logs.
func describeError(err error) error {
	var apiErr *goSession.APIError
	if errors.As(err, &apiErr) && apiErr.RequestID != "" {
		return fmt.Errorf("%w (request %s)", err, apiErr.RequestID)
	}
	var netErr *goSession.NetworkError
	if errors.As(err, &netErr) && netErr.RequestID != "" {
		return fmt.Errorf("%w (request %s)", err, netErr.RequestID)
	}
	return err
}

func readToken(in io.Reader, args []string, fromStdin bool) (string, error) {
	if fromStdin {
		if len(args) > 0 {
			return "", errors.New("pass the token as an argument or with --token-stdin, not both")
		}
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	if len(args) == 0 {
		return "", errors.New("token required")
	}
	return args[0], nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
