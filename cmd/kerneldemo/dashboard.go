package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	kernel "github.com/alexisbeaulieu97/pluginkernel"
	"github.com/alexisbeaulieu97/pluginkernel/internal/obslog"
	"github.com/alexisbeaulieu97/pluginkernel/lifecycle"
)

var (
	dashboardTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dashboardOpStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginTop(1)
	dashboardStepStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	dashboardErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dashboardHintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// dashboardOps lists the canonical lifecycle operations the dashboard
// resolves and displays, in the order the kernel runs them.
var dashboardOps = []string{
	lifecycle.Bootstrap.Name(),
	lifecycle.SetupCLIArguments.Name(),
	lifecycle.ReceiveCLIArguments.Name(),
	lifecycle.Init.Name(),
	lifecycle.Run.Name(),
	lifecycle.Terminate.Name(),
}

// operationResolvedMsg reports the outcome of resolving one operation's
// step sequence, so resolution happens off the UI goroutine the same way
// the teacher's dashboard keeps pipeline verify/apply calls off of it
// (internal/tui/dashboard/update.go's VerifyStartedMsg/VerifyCompleteMsg
// pair).
type operationResolvedMsg struct {
	op  string
	seq []kernel.Step
	err error
}

func resolveOpCmd(mgr *kernel.Manager, op string) tea.Cmd {
	return func() tea.Msg {
		seq, err := mgr.Sequence(op, false)
		return operationResolvedMsg{op: op, seq: seq, err: err}
	}
}

// dashboardModel is a bubbletea.Model that resolves each canonical
// lifecycle operation's step sequence one at a time, animating progress
// with a spinner and progress bar while it works, then leaves the full
// resolved picture on screen. Grounded on the teacher's internal/tui
// Model/View/styles split (internal/tui/view.go, internal/tui/styles.go)
// and its dashboard's spinner/progress component usage
// (internal/tui/dashboard/model.go, internal/tui/components/progress.go),
// trimmed from "animate running provisioning steps" to "animate resolving
// operation sequences" — the only thing this module's dashboard has to
// show off.
type dashboardModel struct {
	mgr        *kernel.Manager
	pluginName []string

	pending   []string
	sequences map[string][]kernel.Step
	errs      map[string]error
	order     []string

	spinner  spinner.Model
	progress progress.Model
	done     bool
}

func newDashboardModel(mgr *kernel.Manager, pluginNames []string) dashboardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	pb := progress.New(progress.WithDefaultGradient())
	pb.Width = 30

	pending := make([]string, len(dashboardOps))
	copy(pending, dashboardOps)

	return dashboardModel{
		mgr:        mgr,
		pluginName: pluginNames,
		pending:    pending,
		sequences:  make(map[string][]kernel.Step, len(dashboardOps)),
		errs:       make(map[string]error, len(dashboardOps)),
		spinner:    sp,
		progress:   pb,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	if len(m.pending) == 0 {
		return nil
	}
	return tea.Batch(m.spinner.Tick, resolveOpCmd(m.mgr, m.pending[0]))
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case operationResolvedMsg:
		if msg.err != nil {
			m.errs[msg.op] = msg.err
		} else {
			m.sequences[msg.op] = msg.seq
		}
		m.order = append(m.order, msg.op)

		if len(m.pending) > 0 {
			m.pending = m.pending[1:]
		}
		if len(m.pending) == 0 {
			m.done = true
			return m, nil
		}
		return m, resolveOpCmd(m.mgr, m.pending[0])
	}

	return m, nil
}

func (m dashboardModel) View() string {
	var sections []string

	sections = append(sections, dashboardTitleStyle.Render(fmt.Sprintf("kerneldemo • %s", strings.Join(m.pluginName, ", "))))

	ratio := float64(len(m.order)) / float64(len(dashboardOps))
	status := fmt.Sprintf("%d/%d resolved", len(m.order), len(dashboardOps))
	if !m.done && len(m.pending) > 0 {
		status = fmt.Sprintf("%s %s resolving %s…", m.spinner.View(), status, m.pending[0])
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Left, m.progress.ViewAs(ratio), " ", status))

	for _, op := range m.order {
		sections = append(sections, dashboardOpStyle.Render(op))

		if err, ok := m.errs[op]; ok {
			sections = append(sections, dashboardErrStyle.Render(fmt.Sprintf("  resolve failed: %v", err)))
			continue
		}

		seq := m.sequences[op]
		if len(seq) == 0 {
			sections = append(sections, dashboardStepStyle.Render("  (no steps)"))
			continue
		}
		for i, step := range seq {
			sections = append(sections, dashboardStepStyle.Render(fmt.Sprintf("  %d. %s", i+1, step.Name)))
		}
	}

	sections = append(sections, dashboardHintStyle.Render("press q to quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// newDashboardCmd builds the kerneldemo subcommand that resolves every
// canonical lifecycle operation's step sequence against the manifest's
// plugins and renders it as an animated bubbletea view, without invoking
// any step (SPEC_FULL.md §4.1 resolver, §6.3 canonical operations).
func newDashboardCmd(logger *obslog.Logger, manifestPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the resolved step sequence for each lifecycle operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(*manifestPath)
			if err != nil {
				return err
			}

			plugins, err := buildPlugins(m)
			if err != nil {
				return err
			}

			mgr, err := kernel.NewManager(plugins, kernel.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("build manager: %w", err)
			}

			names := make([]string, len(plugins))
			for i, p := range plugins {
				names[i] = p.Name()
			}

			program := tea.NewProgram(newDashboardModel(mgr, names))
			_, err = program.Run()
			return err
		},
	}
}
