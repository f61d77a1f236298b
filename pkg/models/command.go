package models

import "time"

// Field names a command field that can be spoken after the trigger phrase.
type Field string

const (
	FieldTeam        Field = "team"
	FieldProject     Field = "project"
	FieldCycle       Field = "cycle"
	FieldDueDate     Field = "due_date"
	FieldPriority    Field = "priority"
	FieldAssignee    Field = "assignee"
	FieldLabel       Field = "label"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
)

// AllFields lists every field in declaration order. Omissions and applied
// field summaries are reported in this order.
var AllFields = []Field{
	FieldTeam,
	FieldProject,
	FieldCycle,
	FieldDueDate,
	FieldPriority,
	FieldAssignee,
	FieldLabel,
	FieldTitle,
	FieldDescription,
}

// IsValid reports whether f is one of the known fields.
func (f Field) IsValid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// Priority is the tracker-independent priority enumeration.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists the accepted priority values.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// ExtractedFields holds raw field values parsed from one command. Label is
// the only multi-valued field and is kept separately in spoken order.
type ExtractedFields struct {
	Values map[Field]string `json:"values"`
	Labels []string         `json:"labels,omitempty"`
}

// Get returns the raw value for a single-valued field.
func (e ExtractedFields) Get(f Field) (string, bool) {
	v, ok := e.Values[f]
	return v, ok
}

// Has reports whether the field was stated at all.
func (e ExtractedFields) Has(f Field) bool {
	if f == FieldLabel {
		return len(e.Labels) > 0
	}
	_, ok := e.Values[f]
	return ok
}

// Resolved pairs an external identifier with its display name.
type Resolved struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Omission records a stated field that failed validation and was dropped.
type Omission struct {
	Field  Field  `json:"field"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// Omission reasons.
const (
	ReasonNotFound         = "not found"
	ReasonCycleNotActive   = "not active or not found"
	ReasonUnparseable      = "unparseable"
	ReasonInvalidPriority  = "invalid priority"
	ReasonUserNotFound     = "user not found"
	ReasonLabelNotFound    = "label not found"
	ReasonLookupFailed     = "lookup failed"
	ReasonTeamMissing      = "team not stated"
	ReasonTeamUnresolvable = "team not found"
)

// ValidatedFields is the resolved, dispatchable form of a command. Team and
// Title are always set; optional fields are nil or empty when absent.
type ValidatedFields struct {
	Team        Resolved   `json:"team"`
	Title       string     `json:"title"`
	Project     *Resolved  `json:"project,omitempty"`
	Cycle       *Resolved  `json:"cycle,omitempty"`
	DueDate     string     `json:"due_date,omitempty"` // YYYY-MM-DD
	Priority    Priority   `json:"priority,omitempty"`
	Assignee    *Resolved  `json:"assignee,omitempty"`
	Labels      []Resolved `json:"labels,omitempty"`
	Description string     `json:"description,omitempty"`
	Omissions   []Omission `json:"omissions,omitempty"`
}

// AppliedField is one field=value pair that made it into the create request.
type AppliedField struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// Applied lists the fields that will be sent, in declaration order, using
// display names rather than identifiers.
func (v *ValidatedFields) Applied() []AppliedField {
	var out []AppliedField
	add := func(f Field, val string) {
		if val != "" {
			out = append(out, AppliedField{Field: f, Value: val})
		}
	}
	add(FieldTeam, v.Team.Name)
	if v.Project != nil {
		add(FieldProject, v.Project.Name)
	}
	if v.Cycle != nil {
		add(FieldCycle, v.Cycle.Name)
	}
	add(FieldDueDate, v.DueDate)
	add(FieldPriority, string(v.Priority))
	if v.Assignee != nil {
		add(FieldAssignee, v.Assignee.Name)
	}
	for _, l := range v.Labels {
		add(FieldLabel, l.Name)
	}
	add(FieldTitle, v.Title)
	if v.Description != "" {
		add(FieldDescription, v.Description)
	}
	return out
}

// CreateIssueInput is the payload handed to the tracker. Pointer and empty
// fields are left out of the remote request entirely.
type CreateIssueInput struct {
	TeamID      string   `json:"teamId"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ProjectID   string   `json:"projectId,omitempty"`
	CycleID     string   `json:"cycleId,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	Priority    Priority `json:"-"`
	AssigneeID  string   `json:"assigneeId,omitempty"`
	LabelIDs    []string `json:"labelIds,omitempty"`
}

// CreatedIssue is what the tracker returns for a successful create.
type CreatedIssue struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	URL        string `json:"url"`
	Title      string `json:"title"`
}

// OutcomeStatus is the terminal state of one command.
type OutcomeStatus string

const (
	OutcomeCreated OutcomeStatus = "created"
	OutcomeAborted OutcomeStatus = "aborted"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomeEmpty   OutcomeStatus = "empty"
)

// CommandOutcome is reported once per finalized command.
type CommandOutcome struct {
	CommandID      string         `json:"command_id"`
	Status         OutcomeStatus  `json:"status"`
	Issue          *CreatedIssue  `json:"issue,omitempty"`
	Applied        []AppliedField `json:"applied,omitempty"`
	Omissions      []Omission     `json:"omissions,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	AvailableTeams []string       `json:"available_teams,omitempty"`
	TriggeredAt    time.Time      `json:"triggered_at"`
	CompletedAt    time.Time      `json:"completed_at"`
}
