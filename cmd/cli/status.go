package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pipedeck/console/internal/common"
	"github.com/pipedeck/console/internal/models"
	"github.com/pipedeck/console/internal/sessions"
)

type stateMsg struct {
	state sessions.State
}

type resultMsg struct {
	result sessions.Result
}

type statusModel struct {
	ctx      context.Context
	manager  *sessions.Manager
	spinner  spinner.Model
	state    sessions.State
	result   *sessions.Result
	quitting bool
}

func newStatusModel(ctx context.Context, manager *sessions.Manager) statusModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6"))

	return statusModel{
		ctx:     ctx,
		manager: manager,
		spinner: s,
		state:   manager.State(),
	}
}

func (m statusModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initialize)
}

func (m statusModel) initialize() tea.Msg {
	return resultMsg{result: m.manager.Initialize(m.ctx)}
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateMsg:
		m.state = msg.state
		return m, nil

	case resultMsg:
		m.result = &msg.result
		m.state = msg.result.State
		return m, tea.Quit
	}

	return m, nil
}

func (m statusModel) View() string {
	if m.quitting || m.result != nil {
		return ""
	}

	if m.state.User != nil {
		return fmt.Sprintf("\n %s Verifying session for %s...\n\n", m.spinner.View(), m.state.User.GetName())
	}

	return fmt.Sprintf("\n %s Restoring session...\n\n", m.spinner.View())
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Restore and verify the stored session",
	PreRunE: preRunSessionE,
	RunE: func(cmd *cobra.Command, args []string) error {

		ctx, cleanup := common.WithInterrupt(context.Background())
		defer cleanup()

		program := tea.NewProgram(newStatusModel(ctx, sessionManager))

		unsubscribe := sessionManager.Subscribe(func(state sessions.State) {
			program.Send(stateMsg{state: state})
		})
		defer unsubscribe()

		final, err := program.Run()
		if err != nil {
			return fmt.Errorf("status display failed: %w", err)
		}

		model := final.(statusModel)
		if model.result == nil {
			return nil
		}

		printStatus(*model.result, sessionManager.LastError())

		if diagnostics, _ := cmd.Flags().GetBool("diagnostics"); diagnostics {
			count, _ := cmd.Flags().GetInt("count")
			printDiagnostics(count)
		}

		return nil
	},
}

func printStatus(result sessions.Result, failure *sessions.Failure) {

	state := result.State

	fmt.Println(headerStyle.Render(fmt.Sprintf("Session for %s", cfg.GetIdentityHostname())))
	fmt.Println("  " + phaseBadge(strings.ToUpper(state.Phase.String()), state.IsAuthenticated()))

	if state.IsAuthenticated() {
		fmt.Println("  " + successStyle.Render(fmt.Sprintf("Signed in as %s", state.User.GetIdentity())))
	} else {
		fmt.Println("  " + mutedStyle.Render("Run 'pipedeck login' to sign in"))
	}

	fmt.Println("  " + infoStyle.Render(fmt.Sprintf("Outcome: %s", result.Outcome)))
	fmt.Println("  " + mutedStyle.Render(fmt.Sprintf("Updated: %s", state.UpdatedAt.Format("2006-01-02 15:04:05"))))

	if failure != nil {
		fmt.Println("  " + errorStyle.Render(fmt.Sprintf("Last error: %s", failure.Error())))
	}

	fmt.Println()
}

func printDiagnostics(count int) {

	hook := cfg.Diagnostics()
	if hook == nil {
		return
	}

	entries := hook.Recent(count)

	fmt.Println(headerStyle.Render("Recent diagnostics"))

	if len(entries) == 0 {
		fmt.Println(infoStyle.Render("ℹ️  Nothing recorded"))
		return
	}

	for _, entry := range entries {
		fmt.Println("  " + formatLogEntry(entry))
	}
}

func formatLogEntry(entry *models.LogEntry) string {
	line := fmt.Sprintf("%s %-7s %s",
		entry.Time.Format("15:04:05"),
		strings.ToUpper(entry.Level.String()),
		entry.Message,
	)

	if len(entry.Error) > 0 {
		line += ": " + entry.Error
	}

	style := warningStyle
	if entry.Level <= logrus.ErrorLevel {
		style = errorStyle
	}

	return style.Render(line)
}

func init() {
	statusCmd.Flags().Bool("diagnostics", false, "Show recent warnings and errors")
	statusCmd.Flags().Int("count", 10, "Number of diagnostic entries to show")

	rootCmd.AddCommand(statusCmd)
}
