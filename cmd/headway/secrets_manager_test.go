// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

// createTestSecretsManager builds a manager that can only resolve
// through the injected environment map. Every CLI backend is gated off
// so results are identical on any host.
func createTestSecretsManager(secrets map[string]string) *DefaultSecretsManager {
	return &DefaultSecretsManager{
		service: SecretService,
		opVault: defaultOpVault,
		goos:    "unsupported",
		envFunc: func(name string) string { return secrets[name] },
		execCommandFunc: func(ctx context.Context, name string, args ...string) *exec.Cmd {
			return exec.Command("false")
		},
		lookPathFunc: func(string) (string, error) {
			return "", exec.ErrNotFound
		},
	}
}

// createTestSecretsManagerWithExec builds a manager whose CLI helpers
// all appear installed and run mockExec instead of the real binaries.
func createTestSecretsManagerWithExec(
	goos string,
	mockExec func(ctx context.Context, name string, args ...string) *exec.Cmd,
) *DefaultSecretsManager {
	return &DefaultSecretsManager{
		service:         SecretService,
		opVault:         defaultOpVault,
		goos:            goos,
		envFunc:         func(string) string { return "" },
		execCommandFunc: mockExec,
		lookPathFunc: func(name string) (string, error) {
			return "/usr/bin/" + name, nil
		},
	}
}

// echoExec returns a mock exec that prints value regardless of the
// requested command.
func echoExec(value string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.Command("echo", value)
	}
}

func failExec(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.Command("false")
}

// allowOnly returns a lookPathFunc that resolves just the named tools.
func allowOnly(tools ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, t := range tools {
			if t == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

func TestDefaultSecretsManager_GetSecret(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("resolves from environment", func(t *testing.T) {
		mgr := createTestSecretsManager(map[string]string{
			"ANTHROPIC_API_KEY": "sk-ant-test123",
		})

		value, err := mgr.GetSecret(ctx, SecretAnthropicKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "sk-ant-test123" {
			t.Errorf("expected 'sk-ant-test123', got %q", value)
		}
	})

	t.Run("trims whitespace from environment value", func(t *testing.T) {
		mgr := createTestSecretsManager(map[string]string{
			"OPENAI_API_KEY": "  sk-test \n",
		})

		value, err := mgr.GetSecret(ctx, SecretOpenAIKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "sk-test" {
			t.Errorf("expected trimmed value, got %q", value)
		}
	})

	t.Run("missing secret returns ErrSecretNotFound", func(t *testing.T) {
		mgr := createTestSecretsManager(map[string]string{})

		_, err := mgr.GetSecret(ctx, SecretAnthropicKey)
		if !errors.Is(err, ErrSecretNotFound) {
			t.Errorf("expected ErrSecretNotFound, got %v", err)
		}
	})

	t.Run("whitespace-only value counts as missing", func(t *testing.T) {
		mgr := createTestSecretsManager(map[string]string{
			"ANTHROPIC_API_KEY": "   ",
		})

		_, err := mgr.GetSecret(ctx, SecretAnthropicKey)
		if !errors.Is(err, ErrSecretNotFound) {
			t.Errorf("expected ErrSecretNotFound, got %v", err)
		}
	})

	t.Run("empty name returns ErrSecretNotFound", func(t *testing.T) {
		mgr := createTestSecretsManager(map[string]string{})

		_, err := mgr.GetSecret(ctx, "")
		if !errors.Is(err, ErrSecretNotFound) {
			t.Errorf("expected ErrSecretNotFound, got %v", err)
		}
	})
}

func TestDefaultSecretsManager_BackendOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("1password wins over environment", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("unsupported", echoExec("op-value"))
		mgr.envFunc = func(string) string { return "env-value" }

		value, err := mgr.GetSecret(ctx, SecretAnthropicKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "op-value" {
			t.Errorf("expected 1password to win, got %q", value)
		}
	})

	t.Run("failed helper falls through to environment", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("unsupported", failExec)
		mgr.envFunc = func(string) string { return "env-value" }

		value, err := mgr.GetSecret(ctx, SecretAnthropicKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "env-value" {
			t.Errorf("expected environment fallback, got %q", value)
		}
	})

	t.Run("keychain consulted on darwin", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("darwin", echoExec("keychain-value"))
		mgr.lookPathFunc = allowOnly("security")

		value, err := mgr.GetSecret(ctx, SecretAnthropicKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "keychain-value" {
			t.Errorf("expected keychain hit, got %q", value)
		}
	})

	t.Run("keychain skipped off darwin", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("linux", echoExec("keychain-value"))
		mgr.lookPathFunc = allowOnly("security")
		mgr.envFunc = func(string) string { return "env-value" }

		value, err := mgr.GetSecret(ctx, SecretAnthropicKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "env-value" {
			t.Errorf("security tool must not be consulted on linux, got %q", value)
		}
	})

	t.Run("libsecret consulted on linux", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("linux", echoExec("libsecret-value"))
		mgr.lookPathFunc = allowOnly("secret-tool")

		value, err := mgr.GetSecret(ctx, SecretAnthropicKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "libsecret-value" {
			t.Errorf("expected libsecret hit, got %q", value)
		}
	})
}

func TestDefaultSecretsManager_HasSecret(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mgr := createTestSecretsManager(map[string]string{
		"ANTHROPIC_API_KEY": "sk-ant-x",
	})

	if !mgr.HasSecret(ctx, SecretAnthropicKey) {
		t.Error("expected HasSecret true for stored secret")
	}
	if mgr.HasSecret(ctx, SecretOpenAIKey) {
		t.Error("expected HasSecret false for missing secret")
	}
}

func TestDefaultSecretsManager_Enclave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("seals and reopens the value", func(t *testing.T) {
		mgr := createTestSecretsManager(map[string]string{
			"ANTHROPIC_API_KEY": "sk-ant-sealed",
		})

		enclave, err := mgr.Enclave(ctx, SecretAnthropicKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		buf, err := enclave.Open()
		if err != nil {
			t.Fatalf("open enclave: %v", err)
		}
		defer buf.Destroy()
		if buf.String() != "sk-ant-sealed" {
			t.Errorf("enclave holds %q, want 'sk-ant-sealed'", buf.String())
		}
	})

	t.Run("missing secret returns error", func(t *testing.T) {
		mgr := createTestSecretsManager(map[string]string{})

		_, err := mgr.Enclave(ctx, SecretAnthropicKey)
		if !errors.Is(err, ErrSecretNotFound) {
			t.Errorf("expected ErrSecretNotFound, got %v", err)
		}
	})
}

func TestDefaultSecretsManager_SetSecret(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("rejects empty name", func(t *testing.T) {
		mgr := createTestSecretsManager(nil)
		if err := mgr.SetSecret(ctx, "", "value"); err == nil {
			t.Error("expected error for empty name")
		}
	})

	t.Run("rejects empty value", func(t *testing.T) {
		mgr := createTestSecretsManager(nil)
		if err := mgr.SetSecret(ctx, SecretAnthropicKey, ""); err == nil {
			t.Error("expected error for empty value")
		}
	})

	t.Run("unsupported platform returns ErrNoSecretBackend", func(t *testing.T) {
		mgr := createTestSecretsManager(nil)
		err := mgr.SetSecret(ctx, SecretAnthropicKey, "value")
		if !errors.Is(err, ErrNoSecretBackend) {
			t.Errorf("expected ErrNoSecretBackend, got %v", err)
		}
	})

	t.Run("darwin without security tool returns ErrNoSecretBackend", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("darwin", echoExec(""))
		mgr.lookPathFunc = allowOnly()

		err := mgr.SetSecret(ctx, SecretAnthropicKey, "value")
		if !errors.Is(err, ErrNoSecretBackend) {
			t.Errorf("expected ErrNoSecretBackend, got %v", err)
		}
	})

	t.Run("darwin write succeeds", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("darwin", echoExec(""))
		if err := mgr.SetSecret(ctx, SecretAnthropicKey, "value"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("linux write succeeds", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("linux", echoExec(""))
		if err := mgr.SetSecret(ctx, SecretAnthropicKey, "value"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("linux store keeps the value out of argv", func(t *testing.T) {
		var captured []string
		mgr := createTestSecretsManagerWithExec("linux",
			func(ctx context.Context, name string, args ...string) *exec.Cmd {
				captured = append([]string{name}, args...)
				return exec.Command("echo")
			})

		if err := mgr.SetSecret(ctx, SecretAnthropicKey, "super-secret"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, arg := range captured {
			if strings.Contains(arg, "super-secret") {
				t.Errorf("secret value leaked into argv: %v", captured)
			}
		}
	})

	t.Run("helper failure surfaces", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("darwin", failExec)
		err := mgr.SetSecret(ctx, SecretAnthropicKey, "value")
		if err == nil {
			t.Fatal("expected error from failing helper")
		}
		if errors.Is(err, ErrNoSecretBackend) {
			t.Errorf("helper failure must not read as missing backend: %v", err)
		}
	})
}

func TestDefaultSecretsManager_DeleteSecret(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("rejects empty name", func(t *testing.T) {
		mgr := createTestSecretsManager(nil)
		if err := mgr.DeleteSecret(ctx, ""); err == nil {
			t.Error("expected error for empty name")
		}
	})

	t.Run("unsupported platform returns ErrNoSecretBackend", func(t *testing.T) {
		mgr := createTestSecretsManager(nil)
		err := mgr.DeleteSecret(ctx, SecretAnthropicKey)
		if !errors.Is(err, ErrNoSecretBackend) {
			t.Errorf("expected ErrNoSecretBackend, got %v", err)
		}
	})

	t.Run("darwin delete succeeds", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("darwin", echoExec(""))
		if err := mgr.DeleteSecret(ctx, SecretAnthropicKey); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("darwin missing item is not an error", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("darwin",
			func(ctx context.Context, name string, args ...string) *exec.Cmd {
				return exec.Command("sh", "-c", "echo 'could not be found'; exit 1")
			})

		if err := mgr.DeleteSecret(ctx, SecretAnthropicKey); err != nil {
			t.Errorf("deleting an absent item should succeed, got %v", err)
		}
	})

	t.Run("linux clear failure surfaces", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("linux", failExec)
		if err := mgr.DeleteSecret(ctx, SecretAnthropicKey); err == nil {
			t.Error("expected error from failing helper")
		}
	})
}

func TestDefaultSecretsManager_DetectAvailableBackends(t *testing.T) {
	t.Parallel()

	t.Run("environment is always present", func(t *testing.T) {
		mgr := createTestSecretsManager(nil)
		got := mgr.DetectAvailableBackends()
		want := []string{BackendEnv}
		if len(got) != 1 || got[0] != want[0] {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("darwin with all tools", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("darwin", failExec)
		got := mgr.DetectAvailableBackends()
		want := []string{Backend1Password, BackendKeychain, BackendEnv}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("linux with all tools", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("linux", failExec)
		got := mgr.DetectAvailableBackends()
		want := []string{Backend1Password, BackendLibsecret, BackendEnv}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("linux without 1password", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("linux", failExec)
		mgr.lookPathFunc = allowOnly("secret-tool")
		got := mgr.DetectAvailableBackends()
		want := []string{BackendLibsecret, BackendEnv}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}

func TestEnvNameFor(t *testing.T) {
	t.Parallel()

	if got := envNameFor(SecretAnthropicKey); got != "ANTHROPIC_API_KEY" {
		t.Errorf("expected ANTHROPIC_API_KEY, got %q", got)
	}
	if got := envNameFor(SecretOpenAIKey); got != "OPENAI_API_KEY" {
		t.Errorf("expected OPENAI_API_KEY, got %q", got)
	}
}

func TestKeyFormatHint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		secret   string
		value    string
		wantHint bool
	}{
		{"anthropic key with prefix", SecretAnthropicKey, "sk-ant-api03-xyz", false},
		{"anthropic key without prefix", SecretAnthropicKey, "xyz", true},
		{"openai key with prefix", SecretOpenAIKey, "sk-proj-xyz", false},
		{"openai key without prefix", SecretOpenAIKey, "xyz", true},
		{"unknown secret never hints", "other_key", "anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := keyFormatHint(tt.secret, tt.value)
			if (hint != "") != tt.wantHint {
				t.Errorf("keyFormatHint(%q, %q) = %q, wantHint=%t",
					tt.secret, tt.value, hint, tt.wantHint)
			}
		})
	}
}

func TestGetSetupInstructions(t *testing.T) {
	t.Parallel()

	t.Run("darwin leads with the keychain", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("darwin", failExec)
		text := mgr.GetSetupInstructions(SecretAnthropicKey)

		if !strings.Contains(text, "Option 1: macOS Keychain") {
			t.Errorf("expected keychain as option 1:\n%s", text)
		}
		if !strings.Contains(text, SecretAnthropicKey) {
			t.Error("instructions must name the secret")
		}
		if !strings.Contains(text, "ANTHROPIC_API_KEY") {
			t.Error("instructions must name the environment variable")
		}
	})

	t.Run("linux leads with libsecret", func(t *testing.T) {
		mgr := createTestSecretsManagerWithExec("linux", failExec)
		text := mgr.GetSetupInstructions(SecretOpenAIKey)

		if !strings.Contains(text, "Option 1: GNOME Keyring / libsecret") {
			t.Errorf("expected libsecret as option 1:\n%s", text)
		}
	})

	t.Run("unsupported platform still offers 1password and env", func(t *testing.T) {
		mgr := createTestSecretsManager(nil)
		text := mgr.GetSetupInstructions(SecretAnthropicKey)

		if !strings.Contains(text, "Option 1: 1Password CLI") {
			t.Errorf("expected 1password as option 1:\n%s", text)
		}
		if !strings.Contains(text, envOpVault) {
			t.Error("instructions must mention the vault override variable")
		}
	})
}

func TestApiKeyNameFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		provider string
		want     string
	}{
		{"anthropic", SecretAnthropicKey},
		{"openai", SecretOpenAIKey},
		{"", SecretAnthropicKey},
		{"unknown", SecretAnthropicKey},
	}
	for _, tt := range tests {
		if got := apiKeyNameFor(tt.provider); got != tt.want {
			t.Errorf("apiKeyNameFor(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}
