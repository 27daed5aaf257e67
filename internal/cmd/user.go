package cmd

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/auth"
	"github.com/xdg/cmdgate/internal/prompt"
	"github.com/xdg/cmdgate/internal/term"
)

// Interactive input. Tests replace these with mocks.
var (
	credentialReader prompt.CredentialReader = prompt.NewTerminalCredentialReader(os.Stdin, os.Stderr)
	confirmPrompter  prompt.YesNoPrompter    = prompt.NewStdinYesNoPrompter(os.Stdin, os.Stderr)
)

var (
	userEmail     string
	userSuperuser bool
	userScopes    []string
	userYes       bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage login accounts",
	Long: `Manage the accounts that can log in with POST /auth/login.

Accounts live in the users file (auth.users_file) or, when auth.database_url
is set, in PostgreSQL.`,
}

var userAddCmd = &cobra.Command{
	Use:   "add USERNAME",
	Short: "Create an account",
	Long: `Create an account. The password is read from the terminal twice, or
once from stdin when it is not a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

var userRemoveCmd = &cobra.Command{
	Use:   "remove USERNAME",
	Short: "Delete an account",
	Long: `Delete an account. Bearer tokens already issued to it stop working
immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserRemove,
}

var userUnlockCmd = &cobra.Command{
	Use:   "unlock USERNAME",
	Short: "Clear failed logins and any lockout",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserUnlock,
}

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userAddCmd.Flags().BoolVar(&userSuperuser, "superuser", false, "mark the account as superuser")
	userAddCmd.Flags().StringSliceVar(&userScopes, "scope", nil, "scope to grant (repeatable)")
	userRemoveCmd.Flags().BoolVarP(&userYes, "yes", "y", false, "do not ask for confirmation")

	userCmd.AddCommand(userAddCmd, userListCmd, userRemoveCmd, userUnlockCmd)
	rootCmd.AddCommand(userCmd)
}

// withUserStore loads config, opens the user store and runs fn with it.
func withUserStore(ctx context.Context, fn func(auth.UserStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closeStore, err := openUserStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(store)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]
	if err := auth.ValidateUsername(username); err != nil {
		return err
	}
	return withUserStore(cmd.Context(), func(store auth.UserStore) error {
		password, err := prompt.ReadNewPassword(credentialReader, auth.MinPasswordLength)
		if err != nil {
			return err
		}
		u, err := auth.NewUser(username, userEmail, password, userSuperuser, userScopes)
		if err != nil {
			return err
		}
		if err := store.Create(cmd.Context(), u); err != nil {
			return userStoreError(username, err)
		}
		term.Printf("Created user %s\n", username)
		return nil
	})
}

func runUserList(cmd *cobra.Command, args []string) error {
	return withUserStore(cmd.Context(), func(store auth.UserStore) error {
		users, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(users) == 0 {
			term.Println("No users.")
			return nil
		}
		now := time.Now()
		rows := make([][]string, 0, len(users))
		for _, u := range users {
			rows = append(rows, []string{
				u.Username,
				u.Email,
				strconv.FormatBool(u.Active),
				strconv.FormatBool(u.Superuser),
				strings.Join(u.Scopes, ","),
				lockState(u, now),
			})
		}
		term.Table([]string{"username", "email", "active", "superuser", "scopes", "locked"}, rows)
		return nil
	})
}

func lockState(u auth.User, now time.Time) string {
	if u.LockedUntil.After(now) {
		return "until " + u.LockedUntil.Local().Format(time.Kitchen)
	}
	return "-"
}

func runUserRemove(cmd *cobra.Command, args []string) error {
	username := args[0]
	return withUserStore(cmd.Context(), func(store auth.UserStore) error {
		if _, err := store.Get(cmd.Context(), username); err != nil {
			return userStoreError(username, err)
		}
		if !userYes {
			ok, err := confirmPrompter.PromptYesNo("Remove user "+username+"?", false)
			if err != nil {
				return err
			}
			if !ok {
				term.Println("Aborted.")
				return nil
			}
		}
		if err := store.Delete(cmd.Context(), username); err != nil {
			return userStoreError(username, err)
		}
		term.Printf("Removed user %s\n", username)
		return nil
	})
}

func runUserUnlock(cmd *cobra.Command, args []string) error {
	username := args[0]
	return withUserStore(cmd.Context(), func(store auth.UserStore) error {
		if err := store.UpdateLoginState(cmd.Context(), username, 0, time.Time{}); err != nil {
			return userStoreError(username, err)
		}
		term.Printf("Unlocked user %s\n", username)
		return nil
	})
}
