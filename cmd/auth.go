package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/credentials"
	fferrors "github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/errors"
)

// minAPIKeyLength rejects obviously truncated pastes.
const minAPIKeyLength = 8

// NewAuthCommand creates the auth command group.
func NewAuthCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Fireflies API key",
		Long: `Manage the Fireflies API key used by ffdl.

The key is stored in the system keyring (macOS Keychain, Windows Credential
Manager, or Linux Secret Service). A key passed with --api-key or set in
FIREFLIES_API_KEY takes precedence over the stored one.`,
	}

	cmd.AddCommand(newAuthLoginCommand(deps))
	cmd.AddCommand(newAuthLogoutCommand(deps))
	cmd.AddCommand(newAuthStatusCommand(deps))
	return cmd
}

func newAuthLoginCommand(deps *CommandDeps) *cobra.Command {
	var (
		apiKey         string
		nonInteractive bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a Fireflies API key",
		Long: `Store a Fireflies API key in the system keyring.

Examples:
  # Interactive login (prompts for the key with hidden input)
  ffdl auth login

  # Login with the key as a flag
  ffdl auth login --api-key ff-abc123...

  # Store the key from the environment
  FIREFLIES_API_KEY=ff-abc123... ffdl auth login`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(deps, apiKey, nonInteractive)
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key to store")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Fail instead of prompting for input")
	return cmd
}

func newAuthLogoutCommand(deps *CommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API key",
		Long: `Remove the API key from the system keyring.

FIREFLIES_API_KEY is not affected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout(deps)
		},
	}
}

func newAuthStatusCommand(deps *CommandDeps) *cobra.Command {
	var apiKey string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which API key would be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(deps, apiKey)
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key to check precedence against")
	return cmd
}

func runAuthLogin(deps *CommandDeps, apiKey string, nonInteractive bool) error {
	out := deps.stdout()

	store, err := deps.Credentials()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	cfg, err := deps.config()
	if err != nil {
		return err
	}

	if apiKey == "" {
		if env := os.Getenv(credentials.EnvAPIKey); env != "" {
			apiKey = env
			fmt.Fprintf(out, "Using API key from %s environment variable\n", credentials.EnvAPIKey)
		}
	}

	if apiKey == "" {
		if nonInteractive {
			return fmt.Errorf("no API key provided and --non-interactive flag set")
		}
		apiKey, err = deps.ReadSecret("Fireflies API key: ")
		if err != nil {
			return fmt.Errorf("reading API key: %w", err)
		}
	}

	apiKey = strings.TrimSpace(apiKey)
	if err := validateAPIKey(apiKey); err != nil {
		return fmt.Errorf("invalid API key: %w", err)
	}

	if err := store.Save(apiKey, cfg.APIEndpoint); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}

	fmt.Fprintln(out, "Login successful!")
	fmt.Fprintf(out, "  API Key: %s\n", credentials.MaskAPIKey(apiKey))
	fmt.Fprintf(out, "  Key ID:  %s\n", credentials.GenerateAPIKeyID(apiKey))
	return nil
}

// validateAPIKey performs basic validation on a key before storing it.
func validateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("API key is empty")
	}
	if len(key) < minAPIKeyLength {
		return fmt.Errorf("API key is too short")
	}
	if strings.ContainsAny(key, " \t\r\n") {
		return fmt.Errorf("API key contains whitespace")
	}
	return nil
}

func runAuthLogout(deps *CommandDeps) error {
	out := deps.stdout()

	store, err := deps.Credentials()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	if !store.Exists() {
		fmt.Fprintln(out, "No stored API key found.")
		return nil
	}

	if err := store.Delete(); err != nil {
		return fmt.Errorf("removing API key: %w", err)
	}

	fmt.Fprintln(out, "Logged out successfully.")

	if os.Getenv(credentials.EnvAPIKey) != "" {
		fmt.Fprintf(out, "\nNote: %s environment variable is still set.\n", credentials.EnvAPIKey)
		fmt.Fprintf(out, "Unset it with: unset %s\n", credentials.EnvAPIKey)
	}
	return nil
}

func runAuthStatus(deps *CommandDeps, flagKey string) error {
	out := deps.stdout()

	store, err := deps.Credentials()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	fmt.Fprintln(out, "Authentication Status")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	if env := os.Getenv(credentials.EnvAPIKey); env != "" {
		fmt.Fprintf(out, "  %s: %s\n", credentials.EnvAPIKey, credentials.MaskAPIKey(env))
	} else {
		fmt.Fprintf(out, "  %s: (not set)\n", credentials.EnvAPIKey)
	}

	if meta, err := store.LoadMetadata(); err == nil {
		fmt.Fprintf(out, "  Stored key ID: %s\n", meta.KeyID)
		fmt.Fprintf(out, "  Last Updated:  %s\n", meta.LastUpdated.Format(time.RFC3339))
	}

	key, source, err := store.Resolve(flagKey)
	fmt.Fprintln(out)
	if err != nil {
		if errors.Is(err, fferrors.ErrNoCredentials) {
			fmt.Fprintln(out, "Not authenticated. Run 'ffdl auth login' or set FIREFLIES_API_KEY.")
			return nil
		}
		return fmt.Errorf("resolving API key: %w", err)
	}

	fmt.Fprintf(out, "Active API Key: %s (source: %s)\n", credentials.MaskAPIKey(key), source)
	return nil
}

// readSecret reads a line without echo, falling back to a plain read when
// stdin is not a terminal.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
