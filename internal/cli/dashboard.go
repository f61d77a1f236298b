package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ditto/internal/observability"
)

// Dashboard panel indices.
const (
	panelOutcomes = iota
	panelOmissions
	panelAlerts
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	metrics *observability.Metrics
	alerts  []alertSnapshot

	loading bool
	err     error
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	metrics *observability.Metrics
	alerts  []alertSnapshot
	err     error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	outcomeCreated = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	outcomeAborted = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	outcomeFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	outcomeEmpty   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelOutcomes,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.metrics = msg.metrics
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" ditto ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	outcomesPanel := m.renderOutcomesPanel()
	omissionsPanel := m.renderOmissionsPanel()
	alertsPanel := m.renderAlertsPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		outcomesPanel = m.applyPanelStyle(panelOutcomes, outcomesPanel, colWidth-4)
		omissionsPanel = m.applyPanelStyle(panelOmissions, omissionsPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, outcomesPanel, omissionsPanel, alertsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		outcomesPanel = m.applyPanelStyle(panelOutcomes, outcomesPanel, panelWidth)
		omissionsPanel = m.applyPanelStyle(panelOmissions, omissionsPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, outcomesPanel, omissionsPanel, alertsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderOutcomesPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Commands (7d)"))
	b.WriteString("\n")

	if m.metrics == nil || m.metrics.Finalized() == 0 {
		b.WriteString("  No commands recorded.")
		return b.String()
	}

	md := m.metrics
	lines := []struct {
		label string
		value int
		style lipgloss.Style
	}{
		{"created", md.IssuesCreated, outcomeCreated},
		{"aborted", md.CommandsAborted, outcomeAborted},
		{"failed", md.CommandsFailed, outcomeFailed},
		{"empty", md.CommandsEmpty, outcomeEmpty},
	}
	for _, l := range lines {
		if l.value == 0 {
			continue
		}
		b.WriteString(l.style.Render(fmt.Sprintf("  %-10s %d", l.label, l.value)))
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("\n  Success: %.0f%%", md.SuccessRate()*100))
	if md.MaxLatencyMs > 0 {
		b.WriteString(fmt.Sprintf("\n  Latency: %dms avg", md.AvgLatencyMs))
	}
	return b.String()
}

func (m dashboardModel) renderOmissionsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Ignored fields"))
	b.WriteString("\n")

	if m.metrics == nil || len(m.metrics.OmissionsByField) == 0 {
		b.WriteString("  Nothing ignored.")
		return b.String()
	}

	fields := make([]string, 0, len(m.metrics.OmissionsByField))
	for f := range m.metrics.OmissionsByField {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		ci, cj := m.metrics.OmissionsByField[fields[i]], m.metrics.OmissionsByField[fields[j]]
		if ci != cj {
			return ci > cj
		}
		return fields[i] < fields[j]
	})
	for _, f := range fields {
		b.WriteString(fmt.Sprintf("  %-10s %d\n", f, m.metrics.OmissionsByField[f]))
	}
	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	var result dataLoadedMsg

	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = metrics
	}

	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = make([]alertSnapshot, 0, len(alerts))

		// High first, then medium, then low.
		sort.SliceStable(alerts, func(i, j int) bool {
			return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
		})

		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	return result
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for command outcomes and alerts",
	Long: `Launch an interactive terminal dashboard showing command outcomes,
the fields most often ignored, and active alerts.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (event log may be disabled)")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
