package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hitoshi/agencytime/internal/auth"
	"github.com/hitoshi/agencytime/internal/model"
)

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})

	for _, name := range []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck, CommandToken} {
		cmd, _, err := root.Find([]string{string(name)})
		if err != nil {
			t.Errorf("Find(%q) error: %v", name, err)
			continue
		}
		if cmd.Name() != string(name) {
			t.Errorf("Find(%q) = %q", name, cmd.Name())
		}
	}
}

func TestNewRootCommand_EnvFileFlag(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})

	if root.PersistentFlags().Lookup("env-file") == nil {
		t.Fatal("--env-file flag should be registered")
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{CommandServe, "serve"},
		{CommandWorker, "worker"},
		{CommandMigrate, "migrate"},
		{CommandHealthcheck, "healthcheck"},
		{CommandToken, "token"},
	}

	for _, tt := range tests {
		if got := string(tt.cmd); got != tt.want {
			t.Errorf("Command(%q) string = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestTokenCommand_IssuesResolvableToken(t *testing.T) {
	setTestEnv(t)

	var logs, out bytes.Buffer
	root := NewRootCommand(&logs)
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--user-id", "7", "--username", "alice", "--role", "admin"})

	if err := root.Execute(); err != nil {
		t.Fatalf("token command failed: %v", err)
	}

	tokens, err := auth.NewTokenService("test-jwt-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	p, err := tokens.Resolve(context.Background(), strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("issued token should resolve: %v", err)
	}
	if p.UserID != 7 || p.Role != model.RoleAdmin {
		t.Errorf("principal = %+v, want admin 7", p)
	}
}

func TestTokenCommand_RejectsInvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing user id", []string{"token"}},
		{"unknown role", []string{"token", "--user-id", "7", "--role", "owner"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setTestEnv(t)
			root := NewRootCommand(&bytes.Buffer{})
			root.SetOut(&bytes.Buffer{})
			root.SetArgs(tt.args)

			if err := root.Execute(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHealthcheckCommand_FailsWithoutServer(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})
	root.SetArgs([]string{"healthcheck", "--port", "1"})

	if err := root.Execute(); err == nil {
		t.Error("healthcheck should fail when nothing listens on the port")
	}
}
