// Package auth discovers the Claude Code OAuth token on the host and builds
// the documents written into the dev container so the CLI starts signed in.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ryanmoran/bubble/internal"
)

const (
	// TokenEnv is read first and passed through to the container.
	TokenEnv = "CLAUDE_CODE_OAUTH_TOKEN"

	keychainService = "Claude Code-credentials"
	keychainAccount = "oauth_token"
)

// Resolver finds the OAuth token and the host's Claude account settings.
type Resolver struct {
	Getenv  func(string) string
	HomeDir func() (string, error)
	GOOS    string
	// Command builds the keychain lookup on macOS.
	Command func(ctx context.Context, name string, args ...string) *exec.Cmd
	Writer  internal.Writer
}

func NewResolver(w internal.Writer) Resolver {
	return Resolver{
		Getenv:  os.Getenv,
		HomeDir: os.UserHomeDir,
		GOOS:    runtime.GOOS,
		Command: exec.CommandContext,
		Writer:  w,
	}
}

// ResolveToken returns the token from TokenEnv, then from the macOS keychain.
// An empty result is not an error; the session continues unauthenticated.
func (r Resolver) ResolveToken(ctx context.Context) string {
	if token := r.Getenv(TokenEnv); token != "" {
		r.Writer.Debug("OAuth token found in environment variable")
		return token
	}

	if r.GOOS == "darwin" {
		out, err := r.Command(ctx, "security", "find-generic-password", "-s", keychainService, "-a", keychainAccount, "-w").Output()
		token := strings.TrimSpace(string(out))
		switch {
		case err != nil:
			r.Writer.Debug("keychain lookup failed", "err", err)
		case token == "":
			r.Writer.Warn("keychain entry found but token is empty")
		default:
			r.Writer.Debug("OAuth token extracted from macOS keychain")
			return token
		}
	}

	r.Writer.Warn("no OAuth token found, Claude Code authentication may fail inside the container")
	return ""
}

type credentials struct {
	ClaudeAIOAuth oauth `json:"claudeAiOauth"`
}

type oauth struct {
	AccessToken string   `json:"accessToken"`
	Scopes      []string `json:"scopes"`
}

// CredentialsJSON returns the credentials document for token.
func CredentialsJSON(token string) (string, error) {
	doc, err := json.Marshal(credentials{ClaudeAIOAuth: oauth{
		AccessToken: token,
		Scopes:      []string{"user:inference", "user:profile"},
	}})
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}
	return string(doc), nil
}

// ClaudeConfig returns the ~/.claude.json written into the container. It marks
// onboarding complete and carries over the host's oauthAccount, if any.
func (r Resolver) ClaudeConfig() (string, error) {
	config := map[string]any{
		"hasCompletedOnboarding": true,
		"theme":                  "dark-daltonized",
	}

	if home, err := r.HomeDir(); err == nil {
		path := filepath.Join(home, ".claude.json")
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			r.Writer.Warn("failed to read host Claude config", "path", path, "err", err)
		default:
			var host map[string]json.RawMessage
			if err := json.Unmarshal(content, &host); err != nil {
				r.Writer.Warn("host Claude config is not valid JSON", "path", path)
				break
			}
			if account, ok := host["oauthAccount"]; ok {
				config["oauthAccount"] = account
				r.Writer.Debug("oauthAccount copied from host Claude config")
			}
		}
	}

	doc, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("failed to encode Claude config: %w", err)
	}
	return string(doc), nil
}
