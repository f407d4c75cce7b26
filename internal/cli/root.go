package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/breezemail/breeze/internal/config"
	"github.com/breezemail/breeze/internal/mailbox/gmail"
	"github.com/breezemail/breeze/internal/session"
	"github.com/breezemail/breeze/internal/store"
	"github.com/breezemail/breeze/internal/store/sqlite"
	"github.com/breezemail/breeze/internal/tui"
)

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string

	// jsonFlag enables JSON output for all commands.
	jsonFlag bool
)

// ErrNoAccount is returned when no account has been added yet.
var ErrNoAccount = errors.New("no accounts configured; run 'breeze account add' first")

func NewRootCmd() *cobra.Command {
	var accountFlag string

	root := &cobra.Command{
		Use:     "breeze",
		Short:   "Fast Gmail client for the terminal",
		Long:    "A Gmail client built around an instant, cached folder view with undoable archive and snooze.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if shell, _ := cmd.Flags().GetString("generate-completion"); shell != "" {
				switch shell {
				case "bash":
					return cmd.Root().GenBashCompletion(os.Stdout)
				case "zsh":
					return cmd.Root().GenZshCompletion(os.Stdout)
				case "fish":
					return cmd.Root().GenFishCompletion(os.Stdout, true)
				default:
					return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", shell)
				}
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			sess, _, err := buildSession(cmd.Context(), db, cfg, accountFlag)
			if err != nil {
				return err
			}

			accounts, err := db.ListAccounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			return tui.Run(sess, accounts, cfg)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("breeze %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().String("generate-completion", "", "Generate shell completion (bash, zsh, fish)")
	root.Flags().MarkHidden("generate-completion")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.Flags().StringVar(&accountFlag, "account", "", "account ID to use (defaults to config default or first account)")
	root.AddCommand(newAccountCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReadCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newDraftCmd())
	root.AddCommand(newArchiveCmd())
	root.AddCommand(newSnoozeCmd())
	root.AddCommand(newUnsnoozeCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newComposeCmd())
	root.AddCommand(newReplyCmd())
	root.AddCommand(newStarCmd())
	root.AddCommand(newMarkReadCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// openDB creates the data directory and opens the SQLite database.
func openDB() (*sqlite.DB, error) {
	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "breeze.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// loadConfig loads the application configuration from the config file.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// buildSession resolves the account and wires a session over an
// authenticated Gmail client.
func buildSession(ctx context.Context, db *sqlite.DB, cfg *config.Config, accountFlag string) (*session.Session, string, error) {
	if err := resolveGmailCredentials(cfg); err != nil {
		return nil, "", err
	}

	accountID := accountFlag
	if accountID == "" {
		var err error
		accountID, err = resolveAccountID(db, cfg)
		if err != nil {
			return nil, "", err
		}
	}

	tokenStore := store.NewKeyringTokenStore()
	client := gmail.New(accountID, tokenStore)

	sess := session.New(accountID, client, db, session.Options{
		FreshWindow: cfg.FreshWindow(),
		UndoWindow:  cfg.UndoWindow(),
		PageSize:    cfg.PageSize(),
	})
	return sess, accountID, nil
}

// resolveAccountID determines which account to use based on config default
// or falls back to the first account in the database.
func resolveAccountID(db *sqlite.DB, cfg *config.Config) (string, error) {
	if cfg.Accounts.Default != "" {
		return cfg.Accounts.Default, nil
	}

	accounts, err := db.ListAccounts(context.Background())
	if err != nil {
		return "", fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return "", ErrNoAccount
	}
	return accounts[0].ID, nil
}

// resolveGmailCredentials sets Gmail OAuth credentials using the first
// available source: config file, then environment variables.
func resolveGmailCredentials(cfg *config.Config) error {
	if cfg.Gmail.ClientID != "" && cfg.Gmail.ClientSecret != "" {
		gmail.SetCredentials(cfg.Gmail.ClientID, cfg.Gmail.ClientSecret)
		return nil
	}

	clientID := os.Getenv("GMAIL_CLIENT_ID")
	clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		gmail.SetCredentials(clientID, clientSecret)
		return nil
	}

	return gmail.EnsureCredentials()
}
