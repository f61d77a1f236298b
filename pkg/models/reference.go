package models

import "strconv"

// Team is a tracker team. Commands are matched against Key or Name.
type Team struct {
	ID   string `json:"id" yaml:"id"`
	Key  string `json:"key" yaml:"key"`
	Name string `json:"name" yaml:"name"`
}

// Project belongs to one or more teams.
type Project struct {
	ID   string `json:"id" yaml:"id"`
	Key  string `json:"key,omitempty" yaml:"key,omitempty"`
	Name string `json:"name" yaml:"name"`
}

// Cycle is a team iteration. Only active cycles are offered for matching.
type Cycle struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Number int    `json:"number" yaml:"number"`
	Active bool   `json:"active" yaml:"active"`
}

// DisplayName falls back to "Cycle N" for unnamed cycles.
func (c Cycle) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return "Cycle " + strconv.Itoa(c.Number)
}

// User is a tracker member that can be assigned issues.
type User struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"displayName,omitempty" yaml:"display_name,omitempty"`
	Email       string `json:"email" yaml:"email"`
}

// Label is an issue label.
type Label struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}
