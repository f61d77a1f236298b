package integration

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/valter-silva-au/ditto/pkg/models"
	"gopkg.in/yaml.v3"
)

// fixtureTeam is one team entry in a fixture file, with its team-scoped
// reference data nested under it.
type fixtureTeam struct {
	models.Team `yaml:",inline"`
	Projects    []models.Project `yaml:"projects"`
	Cycles      []models.Cycle   `yaml:"cycles"`
	Labels      []models.Label   `yaml:"labels"`
}

// fixtureFile is the YAML layout read by LoadFixtureTracker.
type fixtureFile struct {
	Teams  []fixtureTeam  `yaml:"teams"`
	Users  []models.User  `yaml:"users"`
	Labels []models.Label `yaml:"labels"` // workspace-wide labels
}

// FixtureTracker serves reference data from a YAML file and records created
// issues in memory. It backs offline runs and demos.
type FixtureTracker struct {
	data fixtureFile

	mu      sync.Mutex
	seq     map[string]int
	created []models.CreatedIssue
}

// LoadFixtureTracker reads a fixture file.
func LoadFixtureTracker(path string) (*FixtureTracker, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: path from operator config
	if err != nil {
		return nil, fmt.Errorf("reading tracker fixture: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture builds a FixtureTracker from YAML bytes.
func ParseFixture(raw []byte) (*FixtureTracker, error) {
	var data fixtureFile
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing tracker fixture: %w", err)
	}
	seen := make(map[string]bool)
	for _, t := range data.Teams {
		if t.ID == "" || t.Key == "" {
			return nil, fmt.Errorf("parsing tracker fixture: team %q needs id and key", t.Name)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("parsing tracker fixture: duplicate team id %q", t.ID)
		}
		seen[t.ID] = true
	}
	return &FixtureTracker{data: data, seq: make(map[string]int)}, nil
}

func (f *FixtureTracker) team(id string) (*fixtureTeam, error) {
	for i := range f.data.Teams {
		if f.data.Teams[i].ID == id {
			return &f.data.Teams[i], nil
		}
	}
	return nil, &TrackerError{Operation: "lookup", Messages: []string{fmt.Sprintf("team %q does not exist", id)}}
}

func (f *FixtureTracker) Teams(_ context.Context) ([]models.Team, error) {
	teams := make([]models.Team, 0, len(f.data.Teams))
	for _, t := range f.data.Teams {
		teams = append(teams, t.Team)
	}
	return teams, nil
}

func (f *FixtureTracker) Projects(_ context.Context, teamID string) ([]models.Project, error) {
	t, err := f.team(teamID)
	if err != nil {
		return nil, err
	}
	return t.Projects, nil
}

func (f *FixtureTracker) ActiveCycles(_ context.Context, teamID string) ([]models.Cycle, error) {
	t, err := f.team(teamID)
	if err != nil {
		return nil, err
	}
	var active []models.Cycle
	for _, c := range t.Cycles {
		if c.Active {
			active = append(active, c)
		}
	}
	return active, nil
}

func (f *FixtureTracker) Users(_ context.Context) ([]models.User, error) {
	return f.data.Users, nil
}

// Labels returns the team's labels followed by workspace-wide labels.
func (f *FixtureTracker) Labels(_ context.Context, teamID string) ([]models.Label, error) {
	t, err := f.team(teamID)
	if err != nil {
		return nil, err
	}
	labels := make([]models.Label, 0, len(t.Labels)+len(f.data.Labels))
	labels = append(labels, t.Labels...)
	labels = append(labels, f.data.Labels...)
	return labels, nil
}

// CreateIssue records the issue and numbers it per team as KEY-n.
func (f *FixtureTracker) CreateIssue(_ context.Context, in models.CreateIssueInput) (*models.CreatedIssue, error) {
	t, err := f.team(in.TeamID)
	if err != nil {
		return nil, &TrackerError{Operation: "issueCreate", Messages: []string{fmt.Sprintf("team %q does not exist", in.TeamID)}}
	}
	if in.Title == "" {
		return nil, &TrackerError{Operation: "issueCreate", Messages: []string{"title is required"}}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq[t.Key]++
	identifier := fmt.Sprintf("%s-%d", t.Key, f.seq[t.Key])
	issue := models.CreatedIssue{
		ID:         "fixture-" + identifier,
		Identifier: identifier,
		URL:        "fixture://issue/" + identifier,
		Title:      in.Title,
	}
	f.created = append(f.created, issue)
	return &issue, nil
}

// Created returns the issues created so far.
func (f *FixtureTracker) Created() []models.CreatedIssue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CreatedIssue(nil), f.created...)
}
