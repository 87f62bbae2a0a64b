// Command pushctl posts a sync batch file to a running push server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"

	"github.com/opentutorials-org/otu-sync/internal/service"
	"github.com/opentutorials-org/otu-sync/internal/validate"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "otu-sync")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "otu-sync")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (run pushctl token)")
	}
	return tf.AccessToken, nil
}

// ---- utils ----

func readAll(p string, stdin io.Reader) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, raw []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, _ = w.Write(raw)
		return
	}
	buf.WriteByte('\n')
	_, _ = buf.WriteTo(w)
}

// ---- push ----

type pushOpts struct {
	addr         string
	lastPulledAt int64
	token        string
	userID       string // test-mode servers only
	timeout      time.Duration
}

// pushFile validates body locally and posts it. It returns the response status and body.
func pushFile(ctx context.Context, client *http.Client, o pushOpts, body []byte) (int, []byte, error) {
	if _, err := validate.ParsePush(body); err != nil {
		return 0, nil, fmt.Errorf("local validation: %w", err)
	}

	u, err := url.Parse(strings.TrimRight(o.addr, "/") + "/sync/push")
	if err != nil {
		return 0, nil, err
	}
	q := u.Query()
	q.Set("last_pulled_at", strconv.FormatInt(o.lastPulledAt, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}
	if o.userID != "" {
		req.Header.Set("X-User-ID", o.userID)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	return resp.StatusCode, raw, err
}

func newPushCmd() *cobra.Command {
	var o pushOpts
	cmd := &cobra.Command{
		Use:   "push <file|->",
		Short: "Validate a batch file and POST it to /sync/push",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readAll(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if o.token == "" && o.userID == "" {
				tok, err := loadToken()
				if err != nil {
					return err
				}
				o.token = tok
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			status, raw, err := pushFile(ctx, http.DefaultClient, o, body)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), raw)
			if status != http.StatusOK {
				return fmt.Errorf("push failed: HTTP %d", status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&o.addr, "addr", "http://localhost:8080", "server base URL")
	cmd.Flags().Int64Var(&o.lastPulledAt, "last-pulled-at", 0, "client pull watermark (epoch ms)")
	cmd.Flags().StringVar(&o.token, "token", "", "bearer token (defaults to the saved token)")
	cmd.Flags().StringVar(&o.userID, "user-id", "", "X-User-ID header for test-mode servers")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 5*time.Minute, "request timeout")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		signKey string
		userID  string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token and save it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if signKey == "" {
				return errors.New("need --sign-key")
			}
			id, err := uuid.FromString(userID)
			if err != nil {
				return fmt.Errorf("bad --user: %w", err)
			}
			tok, exp, err := service.NewTokenAuth([]byte(signKey), ttl).Issue(id)
			if err != nil {
				return err
			}
			if err := saveToken(tok, exp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token saved, expires", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&signKey, "sign-key", os.Getenv("OTU_JWT_KEY"), "HS256 key shared with the server")
	cmd.Flags().StringVar(&userID, "user", "", "user id (uuid)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pushctl",
		Short:        "Developer client for the sync push endpoint",
		Version:      version + " (" + buildDate + ")",
		SilenceUsage: true,
	}
	root.AddCommand(newPushCmd(), newTokenCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
