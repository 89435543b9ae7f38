package remote

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/eiscpctl/internal/receiver"
)

// Run shows the remote for a connected client until the user quits or ctx
// is cancelled. Receiver events reach the screen through a SubscribeAll
// handler.
func Run(ctx context.Context, client *receiver.Client, opts ...tea.ProgramOption) error {
	m := NewModel(ctx, client)

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)

	unsubscribe, err := client.SubscribeAll(func(ev receiver.Event) {
		p.Send(EventMsg(ev))
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer unsubscribe()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("remote: %w", err)
	}
	return nil
}
