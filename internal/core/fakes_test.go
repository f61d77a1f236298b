package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/valter-silva-au/ditto/pkg/models"
)

// refTime is a Monday.
var refTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// fakeDirectory implements ReferenceDirectory over in-memory data.
type fakeDirectory struct {
	teams    []models.Team
	projects map[string][]models.Project
	cycles   map[string][]models.Cycle
	users    []models.User
	labels   map[string][]models.Label

	teamsErr  error
	lookupErr error
	calls     int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		teams: []models.Team{
			{ID: "team-eng", Key: "ENG", Name: "Engineering"},
			{ID: "team-des", Key: "DES", Name: "Design"},
		},
		projects: map[string][]models.Project{
			"team-eng": {
				{ID: "proj-web", Key: "WEB", Name: "Website Relaunch"},
				{ID: "proj-api", Name: "Public API"},
			},
		},
		cycles: map[string][]models.Cycle{
			"team-eng": {
				{ID: "cyc-12", Name: "Sprint Twelve", Number: 12, Active: true},
				{ID: "cyc-11", Name: "Sprint Eleven", Number: 11, Active: false},
			},
		},
		users: []models.User{
			{ID: "user-ada", Name: "ada", DisplayName: "Ada Lovelace", Email: "ada@example.com"},
			{ID: "user-bob", Name: "bob", Email: "bob@example.com"},
		},
		labels: map[string][]models.Label{
			"team-eng": {
				{ID: "lbl-bug", Name: "bug"},
				{ID: "lbl-backend", Name: "backend"},
				{ID: "lbl-urgent", Name: "urgent"},
			},
		},
	}
}

func (d *fakeDirectory) Teams(_ context.Context) ([]models.Team, error) {
	d.calls++
	return d.teams, d.teamsErr
}

func (d *fakeDirectory) Projects(_ context.Context, teamID string) ([]models.Project, error) {
	d.calls++
	return d.projects[teamID], d.lookupErr
}

func (d *fakeDirectory) ActiveCycles(_ context.Context, teamID string) ([]models.Cycle, error) {
	d.calls++
	return d.cycles[teamID], d.lookupErr
}

func (d *fakeDirectory) Users(_ context.Context) ([]models.User, error) {
	d.calls++
	return d.users, d.lookupErr
}

func (d *fakeDirectory) Labels(_ context.Context, teamID string) ([]models.Label, error) {
	d.calls++
	return d.labels[teamID], d.lookupErr
}

// fakeCreator records create requests.
type fakeCreator struct {
	inputs []models.CreateIssueInput
	err    error
}

func (c *fakeCreator) CreateIssue(_ context.Context, in models.CreateIssueInput) (*models.CreatedIssue, error) {
	c.inputs = append(c.inputs, in)
	if c.err != nil {
		return nil, c.err
	}
	n := len(c.inputs)
	return &models.CreatedIssue{
		ID:         fmt.Sprintf("issue-%d", n),
		Identifier: fmt.Sprintf("ENG-%d", n),
		URL:        fmt.Sprintf("https://linear.app/acme/issue/ENG-%d", n),
		Title:      in.Title,
	}, nil
}

// fakeNotifier records outcomes.
type fakeNotifier struct {
	outcomes []models.CommandOutcome
	err      error
}

func (n *fakeNotifier) NotifyOutcome(_ context.Context, o models.CommandOutcome) error {
	n.outcomes = append(n.outcomes, o)
	return n.err
}

// fakeEventLogger records logged events.
type fakeEventLogger struct {
	mu     sync.Mutex
	events []fakeEvent
}

type fakeEvent struct {
	eventType string
	data      map[string]any
}

func (l *fakeEventLogger) LogEvent(eventType string, data map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fakeEvent{eventType: eventType, data: data})
	return nil
}

func (l *fakeEventLogger) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		out = append(out, e.eventType)
	}
	return out
}

// scriptedSource returns one batch per Poll and then ErrSourceClosed.
type scriptedSource struct {
	mu      sync.Mutex
	batches [][]models.TranscriptFragment
}

func (s *scriptedSource) Poll(_ context.Context) ([]models.TranscriptFragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil, ErrSourceClosed
	}
	next := s.batches[0]
	s.batches = s.batches[1:]
	return next, nil
}

var errBoom = errors.New("boom")

func frag(speaker, text string, at time.Time) models.TranscriptFragment {
	return models.TranscriptFragment{Text: text, SpeakerID: speaker, Timestamp: at}
}
