package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/tasksync/internal/auth"
	"github.com/nhle/tasksync/internal/model"
	"github.com/nhle/tasksync/internal/remote"
)

func loginCmd(configPath *string) *cobra.Command {
	var userID, backend string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as a user",
		Long: `Sign in as the given user. The user id is remembered in the system
keyring, so later runs open that user's tasks directly.

Without --user an interactive form asks for the id and the remote
backend. A backend different from the configured one is saved to the
config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			if userID == "" {
				if backend == "" {
					backend = e.cfg.Remote.Backend
				}
				if err := runLoginForm(&userID, &backend); err != nil {
					return err
				}
			}
			if err := e.useBackend(backend); err != nil {
				return err
			}
			if err := e.session.SignIn(userID); err != nil {
				return err
			}

			signedIn, _ := e.session.CurrentUser()
			e.logger.Info("signed in", "user", signedIn)
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s backend)\n", signedIn, e.cfg.Remote.Backend)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id to sign in as")
	cmd.Flags().StringVar(&backend, "backend", "", "remote backend to use and save: memory, sqlite or redis")

	return cmd
}

func userIDInput(userID *string) *huh.Input {
	return huh.NewInput().
		Title("User ID").
		Description("Tasks are stored and synced under this id.").
		Placeholder("alice").
		Value(userID).
		Validate(validateUserID)
}

// runLoginForm asks for the user id and the remote backend.
func runLoginForm(userID, backend *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			userIDInput(userID),
			huh.NewSelect[string]().
				Title("Remote backend").
				Options(
					huh.NewOption("SQLite - local database file", model.BackendSQLite),
					huh.NewOption("Redis - shared server, syncs across machines", model.BackendRedis),
					huh.NewOption("Memory - this process only", model.BackendMemory),
				).
				Value(backend),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("reading login: %w", err)
	}

	*userID = strings.TrimSpace(*userID)
	return nil
}

// promptUserID asks for a user id with a huh form.
func promptUserID() (string, error) {
	var userID string

	form := huh.NewForm(huh.NewGroup(userIDInput(&userID)))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("reading user id: %w", err)
	}

	return strings.TrimSpace(userID), nil
}

func validateUserID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%w: empty", auth.ErrInvalidUser)
	}
	if err := remote.ValidateKey(s); err != nil {
		return fmt.Errorf("%w: %v", auth.ErrInvalidUser, err)
	}
	return nil
}

func logoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			userID, ok := e.session.CurrentUser()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			if err := e.session.SignOut(); err != nil {
				return err
			}

			e.logger.Info("signed out", "user", userID)
			fmt.Fprintf(cmd.OutOrStdout(), "Signed out %s\n", userID)
			return nil
		},
	}
}
