package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valter-silva-au/ditto/pkg/models"
	"go.uber.org/zap"
)

// ReferenceDirectory provides the tracker reference data that commands are
// validated against. Project, cycle and label lookups are scoped to a team.
type ReferenceDirectory interface {
	Teams(ctx context.Context) ([]models.Team, error)
	Projects(ctx context.Context, teamID string) ([]models.Project, error)
	ActiveCycles(ctx context.Context, teamID string) ([]models.Cycle, error)
	Users(ctx context.Context) ([]models.User, error)
	Labels(ctx context.Context, teamID string) ([]models.Label, error)
}

// AbortError is returned when a required field is missing or invalid. No
// create request is made for an aborted command.
type AbortError struct {
	Field          models.Field
	Reason         string
	Value          string
	AvailableTeams []string
}

func (e *AbortError) Error() string {
	msg := fmt.Sprintf("command aborted: %s %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (%q)", e.Value)
	}
	if len(e.AvailableTeams) > 0 {
		msg += "; available teams: " + strings.Join(e.AvailableTeams, ", ")
	}
	return msg
}

// FieldValidator resolves extracted values against reference data. Team is
// required and aborts the command; every other field is dropped with an
// omission when it does not resolve.
type FieldValidator struct {
	dir          ReferenceDirectory
	defaultTitle string
	logger       *zap.Logger
	now          func() time.Time
}

// NewFieldValidator creates a validator. logger may be nil.
func NewFieldValidator(dir ReferenceDirectory, defaultTitle string, logger *zap.Logger) *FieldValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(defaultTitle) == "" {
		defaultTitle = DefaultTitle
	}
	return &FieldValidator{
		dir:          dir,
		defaultTitle: defaultTitle,
		logger:       logger,
		now:          time.Now,
	}
}

// Validate resolves fields. It returns an *AbortError when the team is
// absent or unknown, and a wrapped error when teams cannot be listed at all.
func (v *FieldValidator) Validate(ctx context.Context, fields models.ExtractedFields) (*models.ValidatedFields, error) {
	team, err := v.resolveTeam(ctx, fields)
	if err != nil {
		return nil, err
	}

	out := &models.ValidatedFields{Team: team}

	if raw, ok := fields.Get(models.FieldProject); ok {
		if p, ok := v.resolveProject(ctx, out, team.ID, raw); ok {
			out.Project = p
		}
	}
	if raw, ok := fields.Get(models.FieldCycle); ok {
		if c, ok := v.resolveCycle(ctx, out, team.ID, raw); ok {
			out.Cycle = c
		}
	}
	if raw, ok := fields.Get(models.FieldDueDate); ok {
		if d, ok := ParseDueDate(raw, v.now()); ok {
			out.DueDate = d
		} else {
			v.omit(out, models.FieldDueDate, raw, models.ReasonUnparseable)
		}
	}
	if raw, ok := fields.Get(models.FieldPriority); ok {
		if p, ok := ParsePriority(raw); ok {
			out.Priority = p
		} else {
			v.omit(out, models.FieldPriority, raw, models.ReasonInvalidPriority)
		}
	}
	if raw, ok := fields.Get(models.FieldAssignee); ok {
		if u, ok := v.resolveAssignee(ctx, out, raw); ok {
			out.Assignee = u
		}
	}
	if len(fields.Labels) > 0 {
		out.Labels = v.resolveLabels(ctx, out, team.ID, fields.Labels)
	}

	out.Title = v.defaultTitle
	if raw, ok := fields.Get(models.FieldTitle); ok && strings.TrimSpace(raw) != "" {
		out.Title = strings.TrimSpace(raw)
	}
	if raw, ok := fields.Get(models.FieldDescription); ok {
		out.Description = strings.TrimSpace(raw)
	}

	return out, nil
}

func (v *FieldValidator) resolveTeam(ctx context.Context, fields models.ExtractedFields) (models.Resolved, error) {
	raw, stated := fields.Get(models.FieldTeam)

	teams, err := v.dir.Teams(ctx)
	if err != nil {
		return models.Resolved{}, fmt.Errorf("listing teams: %w", err)
	}

	if stated {
		key := foldKey(raw)
		for _, t := range teams {
			if foldKey(t.Key) == key || foldKey(t.Name) == key {
				return models.Resolved{ID: t.ID, Name: t.Name}, nil
			}
		}
	}

	abort := &AbortError{
		Field:          models.FieldTeam,
		Reason:         models.ReasonTeamMissing,
		AvailableTeams: teamNames(teams),
	}
	if stated {
		abort.Reason = models.ReasonTeamUnresolvable
		abort.Value = raw
	}
	return models.Resolved{}, abort
}

func (v *FieldValidator) resolveProject(ctx context.Context, out *models.ValidatedFields, teamID, raw string) (*models.Resolved, bool) {
	projects, err := v.dir.Projects(ctx, teamID)
	if err != nil {
		v.lookupFailed(out, models.FieldProject, raw, err)
		return nil, false
	}
	key := foldKey(raw)
	for _, p := range projects {
		if foldKey(p.Name) == key || (p.Key != "" && foldKey(p.Key) == key) {
			return &models.Resolved{ID: p.ID, Name: p.Name}, true
		}
	}
	v.omit(out, models.FieldProject, raw, models.ReasonNotFound)
	return nil, false
}

func (v *FieldValidator) resolveCycle(ctx context.Context, out *models.ValidatedFields, teamID, raw string) (*models.Resolved, bool) {
	cycles, err := v.dir.ActiveCycles(ctx, teamID)
	if err != nil {
		v.lookupFailed(out, models.FieldCycle, raw, err)
		return nil, false
	}
	key := foldKey(raw)
	number, numbered := cycleNumber(key)
	for _, c := range cycles {
		if !c.Active {
			continue
		}
		if (c.Name != "" && foldKey(c.Name) == key) || (numbered && c.Number == number) {
			return &models.Resolved{ID: c.ID, Name: c.DisplayName()}, true
		}
	}
	v.omit(out, models.FieldCycle, raw, models.ReasonCycleNotActive)
	return nil, false
}

// cycleNumber accepts "12", "sprint 12" and "cycle 12".
func cycleNumber(key string) (int, bool) {
	for _, prefix := range []string{"sprint ", "cycle "} {
		key = strings.TrimPrefix(key, prefix)
	}
	n, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (v *FieldValidator) resolveAssignee(ctx context.Context, out *models.ValidatedFields, raw string) (*models.Resolved, bool) {
	users, err := v.dir.Users(ctx)
	if err != nil {
		v.lookupFailed(out, models.FieldAssignee, raw, err)
		return nil, false
	}
	key := foldKey(raw)
	for _, u := range users {
		if foldKey(u.Name) == key ||
			(u.DisplayName != "" && foldKey(u.DisplayName) == key) ||
			(u.Email != "" && foldKey(u.Email) == key) {
			name := u.DisplayName
			if name == "" {
				name = u.Name
			}
			return &models.Resolved{ID: u.ID, Name: name}, true
		}
	}
	v.omit(out, models.FieldAssignee, raw, models.ReasonUserNotFound)
	return nil, false
}

// resolveLabels keeps every label that resolves. Each miss is recorded on
// its own; the label field as a whole is never omitted.
func (v *FieldValidator) resolveLabels(ctx context.Context, out *models.ValidatedFields, teamID string, raws []string) []models.Resolved {
	labels, err := v.dir.Labels(ctx, teamID)
	if err != nil {
		v.lookupFailed(out, models.FieldLabel, strings.Join(raws, ", "), err)
		return nil
	}

	byName := make(map[string]models.Label, len(labels))
	for _, l := range labels {
		byName[foldKey(l.Name)] = l
	}

	var resolved []models.Resolved
	seen := make(map[string]bool)
	for _, raw := range raws {
		l, ok := byName[foldKey(raw)]
		if !ok {
			v.omit(out, models.FieldLabel, raw, models.ReasonLabelNotFound)
			continue
		}
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		resolved = append(resolved, models.Resolved{ID: l.ID, Name: l.Name})
	}
	return resolved
}

func (v *FieldValidator) omit(out *models.ValidatedFields, field models.Field, value, reason string) {
	out.Omissions = append(out.Omissions, models.Omission{Field: field, Value: value, Reason: reason})
	v.logger.Debug("field omitted",
		zap.String("field", string(field)),
		zap.String("reason", reason),
	)
}

func (v *FieldValidator) lookupFailed(out *models.ValidatedFields, field models.Field, value string, err error) {
	v.logger.Warn("reference lookup failed",
		zap.String("field", string(field)),
		zap.Error(err),
	)
	v.omit(out, field, value, models.ReasonLookupFailed)
}

// ParsePriority matches raw case-insensitively against the priority
// enumeration.
func ParsePriority(raw string) (models.Priority, bool) {
	key := foldKey(raw)
	for _, p := range models.Priorities {
		if key == string(p) {
			return p, true
		}
	}
	return "", false
}

func teamNames(teams []models.Team) []string {
	names := make([]string, 0, len(teams))
	for _, t := range teams {
		names = append(names, t.Name)
	}
	return names
}
