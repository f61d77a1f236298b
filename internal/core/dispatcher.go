package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valter-silva-au/ditto/pkg/models"
	"go.uber.org/zap"
)

// IssueCreator issues the single create request for a command.
type IssueCreator interface {
	CreateIssue(ctx context.Context, in models.CreateIssueInput) (*models.CreatedIssue, error)
}

// OutcomeNotifier receives the outcome of every finalized command.
// Delivery is fire-and-forget: a notifier error never changes the outcome.
type OutcomeNotifier interface {
	NotifyOutcome(ctx context.Context, outcome models.CommandOutcome) error
}

// ValidatedCommand is a finalized command ready to dispatch.
type ValidatedCommand struct {
	ID          string
	TriggeredAt time.Time
	Fields      *models.ValidatedFields
}

// ActionDispatcher turns a validated command into exactly one create
// request and forwards the outcome to the notifier.
type ActionDispatcher struct {
	creator       IssueCreator
	notifier      OutcomeNotifier
	appendContext bool
	logger        *zap.Logger
	now           func() time.Time
}

// NewActionDispatcher creates a dispatcher. notifier and logger may be nil.
func NewActionDispatcher(creator IssueCreator, notifier OutcomeNotifier, appendContext bool, logger *zap.Logger) *ActionDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionDispatcher{
		creator:       creator,
		notifier:      notifier,
		appendContext: appendContext,
		logger:        logger,
		now:           time.Now,
	}
}

// Dispatch creates the issue for cmd and reports the outcome. Failures are
// terminal for the command; there is no retry.
func (d *ActionDispatcher) Dispatch(ctx context.Context, cmd ValidatedCommand) models.CommandOutcome {
	applied := cmd.Fields.Applied()
	outcome := models.CommandOutcome{
		CommandID:   cmd.ID,
		Applied:     applied,
		Omissions:   cmd.Fields.Omissions,
		TriggeredAt: cmd.TriggeredAt,
	}

	issue, err := d.creator.CreateIssue(ctx, d.BuildInput(cmd))
	outcome.CompletedAt = d.now()
	if err != nil {
		outcome.Status = models.OutcomeFailed
		outcome.Reason = err.Error()
		d.logger.Error("issue creation failed",
			zap.String("command_id", cmd.ID),
			zap.String("team", cmd.Fields.Team.Name),
			zap.Error(err),
		)
	} else {
		outcome.Status = models.OutcomeCreated
		outcome.Issue = issue
		d.logger.Info("issue created",
			zap.String("command_id", cmd.ID),
			zap.String("issue", issue.Identifier),
			zap.Int("applied", len(applied)),
			zap.Int("omissions", len(cmd.Fields.Omissions)),
		)
	}

	d.Notify(ctx, outcome)
	return outcome
}

// Notify forwards outcome to the notifier, logging but otherwise ignoring
// delivery errors.
func (d *ActionDispatcher) Notify(ctx context.Context, outcome models.CommandOutcome) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.NotifyOutcome(ctx, outcome); err != nil {
		d.logger.Warn("outcome notification failed",
			zap.String("command_id", outcome.CommandID),
			zap.String("status", string(outcome.Status)),
			zap.Error(err),
		)
	}
}

// BuildInput maps validated fields onto a create request. Absent optional
// fields stay empty and are left out of the request.
func (d *ActionDispatcher) BuildInput(cmd ValidatedCommand) models.CreateIssueInput {
	f := cmd.Fields
	in := models.CreateIssueInput{
		TeamID:      f.Team.ID,
		Title:       f.Title,
		Description: f.Description,
		DueDate:     f.DueDate,
		Priority:    f.Priority,
	}
	if f.Project != nil {
		in.ProjectID = f.Project.ID
	}
	if f.Cycle != nil {
		in.CycleID = f.Cycle.ID
	}
	if f.Assignee != nil {
		in.AssigneeID = f.Assignee.ID
	}
	for _, l := range f.Labels {
		in.LabelIDs = append(in.LabelIDs, l.ID)
	}
	if d.appendContext {
		in.Description = withContextFooter(f.Description, cmd.TriggeredAt, f.Applied())
	}
	return in
}

func withContextFooter(description string, triggeredAt time.Time, applied []models.AppliedField) string {
	var b strings.Builder
	if description != "" {
		b.WriteString(description)
		b.WriteString("\n\n")
	}
	b.WriteString("---\n")
	fmt.Fprintf(&b, "Created by ditto from a spoken command at %s.", triggeredAt.Format("2006-01-02 15:04:05 MST"))
	var parts []string
	for _, a := range applied {
		if a.Field == models.FieldTitle || a.Field == models.FieldDescription {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", a.Field, a.Value))
	}
	if len(parts) > 0 {
		b.WriteString("\nFields: ")
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}
