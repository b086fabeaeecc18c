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
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/awnumar/memguard"
)

// ===== Secret Names and Errors =====

// SecretService is the account/service identifier under which Headway
// items live in the OS secret store.
const SecretService = "headway"

// Secret names Headway looks up. The advisor picks one by provider.
const (
	SecretAnthropicKey = "anthropic_api_key"
	SecretOpenAIKey    = "openai_api_key"
)

// KnownSecrets lists every secret name Headway may resolve.
var KnownSecrets = []string{
	SecretAnthropicKey,
	SecretOpenAIKey,
}

var (
	// ErrSecretNotFound means no backend holds the requested secret.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrNoSecretBackend means no writable secret store exists on this
	// platform, so Set/Delete cannot proceed.
	ErrNoSecretBackend = errors.New("no writable secret backend available")
)

// Backend identifiers reported by DetectAvailableBackends.
const (
	Backend1Password = "1password"
	BackendKeychain  = "keychain"
	BackendLibsecret = "libsecret"
	BackendEnv       = "environment"
)

// secretCommandTimeout bounds each helper invocation so a hung agent
// prompt cannot stall a command forever.
const secretCommandTimeout = 10 * time.Second

// The 1Password vault searched by `op read`. Overridable because teams
// routinely keep work credentials outside the default vault.
const (
	envOpVault     = "HEADWAY_OP_VAULT"
	defaultOpVault = "Private"
)

// ===== Interface =====

// SecretsManager resolves and manages Headway's API credentials. The
// credential never touches config.json or the log files; it lives in
// the OS secret store or the environment.
type SecretsManager interface {
	// GetSecret resolves a secret by name. Returns ErrSecretNotFound
	// (wrapped) when no backend holds it.
	GetSecret(ctx context.Context, name string) (string, error)

	// HasSecret reports whether any backend holds the secret.
	HasSecret(ctx context.Context, name string) bool

	// SetSecret writes the secret to the platform keychain.
	SetSecret(ctx context.Context, name, value string) error

	// DeleteSecret removes the secret from the platform keychain.
	DeleteSecret(ctx context.Context, name string) error

	// Enclave resolves a secret and seals it in a memguard enclave so
	// the plaintext does not sit in ordinary heap memory.
	Enclave(ctx context.Context, name string) (*memguard.Enclave, error)

	// DetectAvailableBackends lists the resolution paths usable on
	// this host, in lookup order.
	DetectAvailableBackends() []string

	// GetSetupInstructions renders platform-specific guidance for
	// storing the named secret.
	GetSetupInstructions(name string) string
}

// ===== Default Implementation =====

// DefaultSecretsManager resolves secrets through a backend chain:
// 1Password CLI, then the platform keychain (macOS security / Linux
// secret-tool), then the environment. The first hit wins. Writes go to
// the platform keychain only; 1Password has its own tooling and the
// environment is per-shell.
type DefaultSecretsManager struct {
	service string
	opVault string
	goos    string

	// envFunc, execCommandFunc, and lookPathFunc are injection points
	// for tests.
	envFunc         func(string) string
	execCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd
	lookPathFunc    func(string) (string, error)
}

// NewDefaultSecretsManager builds the production manager wired to the
// real environment and subprocess execution.
func NewDefaultSecretsManager() *DefaultSecretsManager {
	vault := os.Getenv(envOpVault)
	if vault == "" {
		vault = defaultOpVault
	}
	return &DefaultSecretsManager{
		service:         SecretService,
		opVault:         vault,
		goos:            runtime.GOOS,
		envFunc:         os.Getenv,
		execCommandFunc: exec.CommandContext,
		lookPathFunc:    exec.LookPath,
	}
}

// GetSecret resolves a secret through the backend chain. Backend
// failures are treated as misses so a broken helper never blocks the
// environment fallback.
func (m *DefaultSecretsManager) GetSecret(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty secret name: %w", ErrSecretNotFound)
	}

	if m.should1PasswordBeTried() {
		if value, err := m.try1Password(ctx, name); err == nil {
			return value, nil
		}
	}
	if m.shouldKeychainBeTried() {
		if value, err := m.tryKeychain(ctx, name); err == nil {
			return value, nil
		}
	}
	if m.shouldLibsecretBeTried() {
		if value, err := m.tryLibsecret(ctx, name); err == nil {
			return value, nil
		}
	}
	if value, err := m.tryEnv(name); err == nil {
		return value, nil
	}

	return "", fmt.Errorf("secret %q not found in any backend: %w", name, ErrSecretNotFound)
}

// HasSecret reports whether any backend resolves the secret.
func (m *DefaultSecretsManager) HasSecret(ctx context.Context, name string) bool {
	_, err := m.GetSecret(ctx, name)
	return err == nil
}

// SetSecret stores the secret in the platform keychain, replacing any
// existing value.
func (m *DefaultSecretsManager) SetSecret(ctx context.Context, name, value string) error {
	if name == "" {
		return fmt.Errorf("empty secret name")
	}
	if value == "" {
		return fmt.Errorf("refusing to store an empty secret")
	}

	ctx, cancel := context.WithTimeout(ctx, secretCommandTimeout)
	defer cancel()

	switch m.goos {
	case "darwin":
		if !m.isKeychainAvailable() {
			return fmt.Errorf("security tool missing: %w", ErrNoSecretBackend)
		}
		// -U updates in place when the item already exists.
		cmd := m.execCommandFunc(ctx, "security", "add-generic-password",
			"-U", "-a", m.service, "-s", name, "-w", value)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("keychain write failed: %v: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	case "linux":
		if !m.isLibsecretAvailable() {
			return fmt.Errorf("secret-tool missing: %w", ErrNoSecretBackend)
		}
		// The value goes via stdin so it never appears in a process list.
		cmd := m.execCommandFunc(ctx, "secret-tool", "store",
			"--label", "Headway "+name, "service", m.service, "key", name)
		cmd.Stdin = strings.NewReader(value)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("secret-tool store failed: %v: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	default:
		return fmt.Errorf("%w on %s", ErrNoSecretBackend, m.goos)
	}
}

// DeleteSecret removes the secret from the platform keychain. Deleting
// a secret that is not stored is not an error.
func (m *DefaultSecretsManager) DeleteSecret(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("empty secret name")
	}

	ctx, cancel := context.WithTimeout(ctx, secretCommandTimeout)
	defer cancel()

	switch m.goos {
	case "darwin":
		if !m.isKeychainAvailable() {
			return fmt.Errorf("security tool missing: %w", ErrNoSecretBackend)
		}
		cmd := m.execCommandFunc(ctx, "security", "delete-generic-password",
			"-a", m.service, "-s", name)
		if out, err := cmd.CombinedOutput(); err != nil {
			// The item not existing reports as an error; treat it as done.
			if strings.Contains(string(out), "could not be found") {
				return nil
			}
			return fmt.Errorf("keychain delete failed: %v: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	case "linux":
		if !m.isLibsecretAvailable() {
			return fmt.Errorf("secret-tool missing: %w", ErrNoSecretBackend)
		}
		cmd := m.execCommandFunc(ctx, "secret-tool", "clear",
			"service", m.service, "key", name)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("secret-tool clear failed: %v: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	default:
		return fmt.Errorf("%w on %s", ErrNoSecretBackend, m.goos)
	}
}

// Enclave resolves a secret and seals it. The intermediate buffer is
// wiped by memguard as part of enclave construction.
func (m *DefaultSecretsManager) Enclave(ctx context.Context, name string) (*memguard.Enclave, error) {
	value, err := m.GetSecret(ctx, name)
	if err != nil {
		return nil, err
	}
	return memguard.NewEnclave([]byte(value)), nil
}

// ===== Backend Detection =====

// DetectAvailableBackends lists the usable resolution paths in lookup
// order. The environment is always last and always present.
func (m *DefaultSecretsManager) DetectAvailableBackends() []string {
	var backends []string
	if m.is1PasswordAvailable() {
		backends = append(backends, Backend1Password)
	}
	if m.goos == "darwin" && m.isKeychainAvailable() {
		backends = append(backends, BackendKeychain)
	}
	if m.goos == "linux" && m.isLibsecretAvailable() {
		backends = append(backends, BackendLibsecret)
	}
	return append(backends, BackendEnv)
}

func (m *DefaultSecretsManager) is1PasswordAvailable() bool {
	_, err := m.lookPathFunc("op")
	return err == nil
}

func (m *DefaultSecretsManager) isKeychainAvailable() bool {
	_, err := m.lookPathFunc("security")
	return err == nil
}

func (m *DefaultSecretsManager) isLibsecretAvailable() bool {
	_, err := m.lookPathFunc("secret-tool")
	return err == nil
}

func (m *DefaultSecretsManager) should1PasswordBeTried() bool {
	return m.is1PasswordAvailable()
}

func (m *DefaultSecretsManager) shouldKeychainBeTried() bool {
	return m.goos == "darwin" && m.isKeychainAvailable()
}

func (m *DefaultSecretsManager) shouldLibsecretBeTried() bool {
	return m.goos == "linux" && m.isLibsecretAvailable()
}

// ===== Backends =====

func (m *DefaultSecretsManager) try1Password(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, secretCommandTimeout)
	defer cancel()

	ref := fmt.Sprintf("op://%s/%s/password", m.opVault, name)
	out, err := m.execCommandFunc(ctx, "op", "read", ref).Output()
	if err != nil {
		return "", fmt.Errorf("1password read failed: %w", err)
	}
	value := strings.TrimSpace(string(out))
	if value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

func (m *DefaultSecretsManager) tryKeychain(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, secretCommandTimeout)
	defer cancel()

	out, err := m.execCommandFunc(ctx, "security", "find-generic-password",
		"-a", m.service, "-s", name, "-w").Output()
	if err != nil {
		return "", fmt.Errorf("keychain read failed: %w", err)
	}
	value := strings.TrimSpace(string(out))
	if value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

func (m *DefaultSecretsManager) tryLibsecret(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, secretCommandTimeout)
	defer cancel()

	out, err := m.execCommandFunc(ctx, "secret-tool", "lookup",
		"service", m.service, "key", name).Output()
	if err != nil {
		return "", fmt.Errorf("libsecret read failed: %w", err)
	}
	value := strings.TrimSpace(string(out))
	if value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

func (m *DefaultSecretsManager) tryEnv(name string) (string, error) {
	value := strings.TrimSpace(m.envFunc(envNameFor(name)))
	if value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// envNameFor maps a secret name to its environment variable:
// anthropic_api_key reads ANTHROPIC_API_KEY.
func envNameFor(name string) string {
	return strings.ToUpper(name)
}

// keyFormatHint returns a warning when the value does not look like a
// key for the given provider, or "" when it looks plausible. Format
// drift happens, so this only ever warns.
func keyFormatHint(name, value string) string {
	switch name {
	case SecretAnthropicKey:
		if !strings.HasPrefix(value, "sk-ant-") {
			return "this does not look like an Anthropic key (expected an sk-ant- prefix)"
		}
	case SecretOpenAIKey:
		if !strings.HasPrefix(value, "sk-") {
			return "this does not look like an OpenAI key (expected an sk- prefix)"
		}
	}
	return ""
}

// ===== Setup Instructions =====

// GetSetupInstructions renders numbered, platform-aware guidance for
// storing the named secret.
func (m *DefaultSecretsManager) GetSetupInstructions(name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "To make %q available to Headway:\n\n", name)

	option := 1
	if m.goos == "darwin" {
		option = m.appendKeychainInstructions(&sb, name, option)
	}
	if m.goos == "linux" {
		option = m.appendLibsecretInstructions(&sb, name, option)
	}
	option = m.append1PasswordInstructions(&sb, name, option)
	m.appendEnvInstructions(&sb, name, option)

	return sb.String()
}

func (m *DefaultSecretsManager) appendKeychainInstructions(sb *strings.Builder, name string, optionNum int) int {
	fmt.Fprintf(sb, "Option %d: macOS Keychain (recommended)\n", optionNum)
	fmt.Fprintf(sb, "  headway configure --set-api-key\n")
	fmt.Fprintf(sb, "  or: security add-generic-password -U -a %s -s %s -w '<value>'\n\n",
		m.service, name)
	return optionNum + 1
}

func (m *DefaultSecretsManager) appendLibsecretInstructions(sb *strings.Builder, name string, optionNum int) int {
	fmt.Fprintf(sb, "Option %d: GNOME Keyring / libsecret (recommended)\n", optionNum)
	fmt.Fprintf(sb, "  headway configure --set-api-key\n")
	fmt.Fprintf(sb, "  or: secret-tool store --label='Headway %s' service %s key %s\n\n",
		name, m.service, name)
	return optionNum + 1
}

func (m *DefaultSecretsManager) append1PasswordInstructions(sb *strings.Builder, name string, optionNum int) int {
	fmt.Fprintf(sb, "Option %d: 1Password CLI\n", optionNum)
	fmt.Fprintf(sb, "  Create an item named %q with a password field in the %q vault.\n",
		name, m.opVault)
	fmt.Fprintf(sb, "  Headway reads op://%s/%s/password via `op read`.\n", m.opVault, name)
	fmt.Fprintf(sb, "  Set %s to use a different vault.\n\n", envOpVault)
	return optionNum + 1
}

func (m *DefaultSecretsManager) appendEnvInstructions(sb *strings.Builder, name string, optionNum int) {
	fmt.Fprintf(sb, "Option %d: environment variable\n", optionNum)
	fmt.Fprintf(sb, "  export %s='<value>'\n", envNameFor(name))
}

// Compile-time interface check.
var _ SecretsManager = (*DefaultSecretsManager)(nil)
