package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tasksync/internal/app"
	"github.com/nhle/tasksync/internal/theme"
)

// runTUI opens the interactive task list, asking for a user id first when
// nobody is signed in.
func runTUI(ctx context.Context, configPath string) error {
	e, err := openEnv(configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := theme.Apply(e.cfg.Display.Theme); err != nil {
		return err
	}

	if _, ok := e.session.CurrentUser(); !ok {
		userID, err := promptUserID()
		if err != nil {
			return err
		}
		if err := e.session.SignIn(userID); err != nil {
			return err
		}
	}

	if err := e.openStore(ctx); err != nil {
		return err
	}
	engine := e.engine()
	defer engine.StopSync()

	p := tea.NewProgram(
		app.New(engine, e.session, e.cfg.Remote.CommandTimeout()),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running tasksync: %w", err)
	}

	if m, ok := final.(app.Model); ok && m.LoggedOut {
		fmt.Fprintln(os.Stdout, "Signed out")
	}
	return nil
}
