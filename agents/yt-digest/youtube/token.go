package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"yt-digest/shared/config"
)

const readOnlyScope = "https://www.googleapis.com/auth/youtube.readonly"

// ErrNoToken means OAuth is configured but no usable token has been stored yet.
var ErrNoToken = errors.New("no stored YouTube OAuth token; run `yt-digest auth` first")

// OAuthConfig builds the device-flow OAuth client configuration.
func OAuthConfig(keys config.APIKeysConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     keys.YouTubeClientID,
		ClientSecret: keys.YouTubeClientSecret,
		Scopes:       []string{readOnlyScope},
		Endpoint:     google.Endpoint,
	}
}

// tokenSaver wraps the OAuth config so refreshed tokens are written back to
// disk and survive restarts.
type tokenSaver struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	logger    zerolog.Logger
	mu        sync.Mutex
}

// Token implements oauth2.TokenSource.
func (ts *tokenSaver) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != ts.token.AccessToken {
		ts.logger.Debug().Msg("Token refreshed, saving to file")
		ts.token = newToken
		if err := saveToken(ts.tokenFile, newToken); err != nil {
			ts.logger.Warn().Err(err).Msg("Failed to save refreshed token")
		}
	}
	return newToken, nil
}

// loadToken returns the stored token when it can still be used, either
// because it is valid or because it carries a refresh token.
func loadToken(tokenFile string) (*oauth2.Token, error) {
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read token file %s: %w", tokenFile, err)
	}
	if tok.RefreshToken != "" || tok.Valid() {
		return tok, nil
	}
	return nil, ErrNoToken
}

// Authorize runs the OAuth device flow, printing instructions to out, and
// stores the resulting token.
func Authorize(ctx context.Context, cfg *oauth2.Config, tokenFile string, out io.Writer) error {
	resp, err := cfg.DeviceAuth(ctx, oauth2.AccessTypeOffline)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("device authorization failed (%s): %s. Ensure your OAuth client is created as 'TVs and Limited Input devices' and that the YouTube Data API v3 is enabled",
				retrieveErr.Response.Status, strings.TrimSpace(string(retrieveErr.Body)))
		}
		return fmt.Errorf("unable to start device authorization: %w", err)
	}

	rule := strings.Repeat("=", 80)
	fmt.Fprintf(out, "\n%s\nYOUTUBE DEVICE AUTHORIZATION REQUIRED\n%s\n", rule, rule)
	fmt.Fprintf(out, "1. Visit %s in your browser (any device works).\n", resp.VerificationURI)
	fmt.Fprintf(out, "2. Enter this code when prompted: %s\n\n", resp.UserCode)
	if complete := strings.TrimSpace(resp.VerificationURIComplete); complete != "" {
		fmt.Fprintf(out, "   Or open directly: %s\n\n", complete)
	}
	fmt.Fprintf(out, "Waiting for authorization to complete... (Ctrl+C to cancel)\n")

	tok, err := cfg.DeviceAccessToken(ctx, resp, oauth2.AccessTypeOffline)
	if err != nil {
		return fmt.Errorf("device authorization did not complete: %w", err)
	}
	if err := saveToken(tokenFile, tok); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nAuthorization successful. Token saved to %s\n", tokenFile)
	return nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode oauth token: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	return nil
}
