package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/valter-silva-au/ditto/pkg/models"
)

// Notifier sends alert summaries to an external channel.
type Notifier interface {
	Notify(alerts []Alert) error
}

// OutcomeNotifier reports the outcome of each finalized command. It matches
// core.OutcomeNotifier.
type OutcomeNotifier interface {
	NotifyOutcome(ctx context.Context, outcome models.CommandOutcome) error
}

// SlackNotifier posts command outcomes and alert summaries to an incoming
// webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a notifier for webhookURL. channel overrides the
// webhook's default channel when set.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Channel string       `json:"channel,omitempty"`
	Text    string       `json:"text,omitempty"`
	Blocks  []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify sends the alerts as one message. No request is made for an empty
// slice.
func (s *SlackNotifier) Notify(alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return s.post(context.Background(), s.alertMessage(alerts))
}

// NotifyOutcome sends one message describing the command outcome. Empty
// commands are only shown on the console, not posted to the channel.
func (s *SlackNotifier) NotifyOutcome(ctx context.Context, outcome models.CommandOutcome) error {
	if outcome.Status == models.OutcomeEmpty {
		return nil
	}
	return s.post(ctx, s.outcomeMessage(outcome))
}

func (s *SlackNotifier) post(ctx context.Context, msg slackMessage) error {
	msg.Channel = s.channel
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *SlackNotifier) alertMessage(alerts []Alert) slackMessage {
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "ditto alert summary"}},
	}
	for i, alert := range alerts {
		if i > 0 {
			blocks = append(blocks, slackBlock{Type: "divider"})
		}
		text := fmt.Sprintf("%s *[%s]* %s\n_%s_",
			severityEmoji(alert.Severity),
			strings.ToUpper(string(alert.Severity)),
			alert.Message,
			alert.TriggeredAt.UTC().Format("2006-01-02 15:04 UTC"),
		)
		blocks = append(blocks, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}})
	}
	return slackMessage{Text: fmt.Sprintf("%d ditto alert(s)", len(alerts)), Blocks: blocks}
}

func (s *SlackNotifier) outcomeMessage(o models.CommandOutcome) slackMessage {
	headline := OutcomeHeadline(o)
	var blocks []slackBlock

	switch o.Status {
	case models.OutcomeCreated:
		text := fmt.Sprintf(":white_check_mark: *%s*", headline)
		if o.Issue != nil && o.Issue.URL != "" {
			text += fmt.Sprintf("  <%s|View Issue>", o.Issue.URL)
		}
		blocks = append(blocks, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}})
		if len(o.Applied) > 0 {
			blocks = append(blocks, slackBlock{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: "*Applied*\n" + bulletList(appliedLines(o.Applied))},
			})
		}
	case models.OutcomeAborted:
		text := fmt.Sprintf(":no_entry: *%s*", headline)
		if len(o.AvailableTeams) > 0 {
			text += "\nAvailable teams: " + strings.Join(o.AvailableTeams, ", ")
		}
		blocks = append(blocks, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}})
	default:
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf(":x: *%s*", headline)},
		})
	}

	if len(o.Omissions) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Ignored*\n" + bulletList(omissionLines(o.Omissions))},
		})
	}
	return slackMessage{Text: headline, Blocks: blocks}
}

// OutcomeHeadline is the one-line summary shown for an outcome.
func OutcomeHeadline(o models.CommandOutcome) string {
	switch o.Status {
	case models.OutcomeCreated:
		if o.Issue != nil {
			return "Created " + o.Issue.Identifier
		}
		return "Created issue"
	case models.OutcomeAborted:
		return "Issue not created: " + o.Reason
	case models.OutcomeFailed:
		return "Issue creation failed: " + o.Reason
	default:
		return "Issue not created: nothing followed the trigger"
	}
}

func appliedLines(applied []models.AppliedField) []string {
	lines := make([]string, 0, len(applied))
	for _, a := range applied {
		lines = append(lines, fmt.Sprintf("%s: %s", a.Field, a.Value))
	}
	return lines
}

func omissionLines(omissions []models.Omission) []string {
	lines := make([]string, 0, len(omissions))
	for _, om := range omissions {
		if om.Value != "" {
			lines = append(lines, fmt.Sprintf("%s %q: %s", om.Field, om.Value, om.Reason))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s", om.Field, om.Reason))
		}
	}
	return lines
}

func bulletList(lines []string) string {
	return "• " + strings.Join(lines, "\n• ")
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "❓"
	}
}

var (
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	labelStyle = lipgloss.NewStyle().Faint(true)
)

// ConsoleNotifier prints outcomes to a terminal.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleNotifier creates a ConsoleNotifier writing to out.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (c *ConsoleNotifier) NotifyOutcome(_ context.Context, o models.CommandOutcome) error {
	var b strings.Builder
	headline := OutcomeHeadline(o)
	switch o.Status {
	case models.OutcomeCreated:
		b.WriteString(okStyle.Render(headline))
		if o.Issue != nil && o.Issue.URL != "" {
			b.WriteString("  " + o.Issue.URL)
		}
		b.WriteString("\n")
		for _, line := range appliedLines(o.Applied) {
			b.WriteString(labelStyle.Render("  applied ") + line + "\n")
		}
	case models.OutcomeAborted:
		b.WriteString(warnStyle.Render(headline) + "\n")
		if len(o.AvailableTeams) > 0 {
			b.WriteString(labelStyle.Render("  available teams ") + strings.Join(o.AvailableTeams, ", ") + "\n")
		}
	case models.OutcomeFailed:
		b.WriteString(errStyle.Render(headline) + "\n")
	default:
		b.WriteString(warnStyle.Render(headline) + "\n")
	}
	for _, line := range omissionLines(o.Omissions) {
		b.WriteString(labelStyle.Render("  ignored ") + line + "\n")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.out, b.String()); err != nil {
		return fmt.Errorf("writing outcome: %w", err)
	}
	return nil
}

// MultiNotifier fans an outcome out to several notifiers. Every notifier is
// tried; their errors are joined.
type MultiNotifier []OutcomeNotifier

func (m MultiNotifier) NotifyOutcome(ctx context.Context, o models.CommandOutcome) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyOutcome(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
