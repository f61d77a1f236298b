package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/valter-silva-au/ditto/pkg/models"
)

// DefaultLinearURL is the Linear GraphQL endpoint.
const DefaultLinearURL = "https://api.linear.app/graphql"

// linearPriority maps the priority enumeration onto Linear's numeric scale
// (0 is "no priority" and never sent).
var linearPriority = map[models.Priority]int{
	models.PriorityUrgent: 1,
	models.PriorityHigh:   2,
	models.PriorityMedium: 3,
	models.PriorityLow:    4,
}

// TrackerError describes a failed tracker request: a non-2xx response,
// GraphQL errors, or an unsuccessful mutation.
type TrackerError struct {
	Operation  string
	StatusCode int
	Messages   []string
}

func (e *TrackerError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tracker %s failed", e.Operation)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	}
	return b.String()
}

// LinearClient talks to the Linear GraphQL API. It serves both reference
// lookups and issue creation.
type LinearClient struct {
	apiURL string
	apiKey string
	client *http.Client
}

// NewLinearClient creates a LinearClient. A "Bearer " prefix on apiKey is
// dropped; Linear personal keys are sent bare.
func NewLinearClient(apiURL, apiKey string, timeout time.Duration) *LinearClient {
	if apiURL == "" {
		apiURL = DefaultLinearURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LinearClient{
		apiURL: apiURL,
		apiKey: strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(apiKey), "Bearer ")),
		client: &http.Client{Timeout: timeout},
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// query posts one GraphQL document and decodes data into out.
func (c *LinearClient) query(ctx context.Context, op, document string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: document, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting %s to linear: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", op, err)
	}

	var gr graphQLResponse
	decodeErr := json.Unmarshal(raw, &gr)

	// GraphQL errors are reported even on non-2xx responses.
	if len(gr.Errors) > 0 {
		msgs := make([]string, 0, len(gr.Errors))
		for _, e := range gr.Errors {
			msgs = append(msgs, e.Message)
		}
		return &TrackerError{Operation: op, StatusCode: statusIfFailed(resp.StatusCode), Messages: msgs}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TrackerError{Operation: op, StatusCode: resp.StatusCode}
	}
	if decodeErr != nil {
		return fmt.Errorf("decoding %s response: %w", op, decodeErr)
	}
	if out == nil || len(gr.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", op, err)
	}
	return nil
}

func statusIfFailed(code int) int {
	if code >= 200 && code <= 299 {
		return 0
	}
	return code
}

const teamsQuery = `query {
  teams(first: 250) { nodes { id key name } }
}`

// Teams lists every team visible to the API key.
func (c *LinearClient) Teams(ctx context.Context) ([]models.Team, error) {
	var data struct {
		Teams struct {
			Nodes []models.Team `json:"nodes"`
		} `json:"teams"`
	}
	if err := c.query(ctx, "teams", teamsQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.Teams.Nodes, nil
}

const projectsQuery = `query($teamId: ID!) {
  projects(first: 250, filter: { accessibleTeams: { id: { eq: $teamId } } }) { nodes { id name } }
}`

// Projects lists the projects of a team.
func (c *LinearClient) Projects(ctx context.Context, teamID string) ([]models.Project, error) {
	var data struct {
		Projects struct {
			Nodes []models.Project `json:"nodes"`
		} `json:"projects"`
	}
	if err := c.query(ctx, "projects", projectsQuery, map[string]any{"teamId": teamID}, &data); err != nil {
		return nil, err
	}
	return data.Projects.Nodes, nil
}

const cyclesQuery = `query($teamId: ID!) {
  cycles(first: 50, filter: { team: { id: { eq: $teamId } }, isActive: { eq: true } }) { nodes { id name number } }
}`

// ActiveCycles lists the team's active cycles.
func (c *LinearClient) ActiveCycles(ctx context.Context, teamID string) ([]models.Cycle, error) {
	var data struct {
		Cycles struct {
			Nodes []struct {
				ID     string  `json:"id"`
				Name   *string `json:"name"`
				Number float64 `json:"number"`
			} `json:"nodes"`
		} `json:"cycles"`
	}
	if err := c.query(ctx, "cycles", cyclesQuery, map[string]any{"teamId": teamID}, &data); err != nil {
		return nil, err
	}
	cycles := make([]models.Cycle, 0, len(data.Cycles.Nodes))
	for _, n := range data.Cycles.Nodes {
		cy := models.Cycle{ID: n.ID, Number: int(n.Number), Active: true}
		if n.Name != nil {
			cy.Name = *n.Name
		}
		cycles = append(cycles, cy)
	}
	return cycles, nil
}

const usersQuery = `query {
  users(first: 250) { nodes { id name displayName email } }
}`

// Users lists the workspace members.
func (c *LinearClient) Users(ctx context.Context) ([]models.User, error) {
	var data struct {
		Users struct {
			Nodes []models.User `json:"nodes"`
		} `json:"users"`
	}
	if err := c.query(ctx, "users", usersQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.Users.Nodes, nil
}

const labelsQuery = `query($teamId: ID!) {
  issueLabels(first: 250, filter: { or: [ { team: { id: { eq: $teamId } } }, { team: { null: true } } ] }) { nodes { id name } }
}`

// Labels lists the team's labels plus workspace-wide labels.
func (c *LinearClient) Labels(ctx context.Context, teamID string) ([]models.Label, error) {
	var data struct {
		IssueLabels struct {
			Nodes []models.Label `json:"nodes"`
		} `json:"issueLabels"`
	}
	if err := c.query(ctx, "labels", labelsQuery, map[string]any{"teamId": teamID}, &data); err != nil {
		return nil, err
	}
	return data.IssueLabels.Nodes, nil
}

const issueCreateMutation = `mutation($input: IssueCreateInput!) {
  issueCreate(input: $input) { success issue { id identifier url title } }
}`

// CreateIssue issues exactly one issueCreate mutation. Absent optional
// fields are left out of the input object rather than sent as null.
func (c *LinearClient) CreateIssue(ctx context.Context, in models.CreateIssueInput) (*models.CreatedIssue, error) {
	var data struct {
		IssueCreate struct {
			Success bool                 `json:"success"`
			Issue   *models.CreatedIssue `json:"issue"`
		} `json:"issueCreate"`
	}
	vars := map[string]any{"input": issueInput(in)}
	if err := c.query(ctx, "issueCreate", issueCreateMutation, vars, &data); err != nil {
		return nil, err
	}
	if !data.IssueCreate.Success || data.IssueCreate.Issue == nil {
		return nil, &TrackerError{Operation: "issueCreate", Messages: []string{"mutation reported success=false"}}
	}
	return data.IssueCreate.Issue, nil
}

// issueInput builds the IssueCreateInput object with present fields only.
func issueInput(in models.CreateIssueInput) map[string]any {
	input := map[string]any{
		"teamId": in.TeamID,
		"title":  in.Title,
	}
	set := func(key, val string) {
		if val != "" {
			input[key] = val
		}
	}
	set("description", in.Description)
	set("projectId", in.ProjectID)
	set("cycleId", in.CycleID)
	set("dueDate", in.DueDate)
	set("assigneeId", in.AssigneeID)
	if n, ok := linearPriority[in.Priority]; ok {
		input["priority"] = n
	}
	if len(in.LabelIDs) > 0 {
		input["labelIds"] = in.LabelIDs
	}
	return input
}
