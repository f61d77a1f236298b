package core

import "testing"

func TestParseDueDate(t *testing.T) {
	// refTime is Monday 2025-03-10.
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"2025-04-01", "2025-04-01", true},
		{"2025/4/1", "2025-04-01", true},
		{"4/1/2026", "2026-04-01", true},
		{"March 15th", "2025-03-15", true},
		{"march 15", "2025-03-15", true},
		{"Mar 3rd", "2025-03-03", true},
		{"the 21st of March", "2025-03-21", true},
		{"15 March", "2025-03-15", true},
		{"March 15, 2026", "2026-03-15", true},
		{"on April 2nd.", "2025-04-02", true},
		{"today", "2025-03-10", true},
		{"Tomorrow", "2025-03-11", true},
		{"next week", "2025-03-17", true},
		{"in 3 days", "2025-03-13", true},
		{"in two weeks", "2025-03-24", true},
		{"friday", "2025-03-14", true},
		{"this friday", "2025-03-14", true},
		{"monday", "2025-03-10", true},
		{"next monday", "2025-03-17", true},
		{"February 29", "", false},
		{"whenever", "", false},
		{"", "", false},
		{"13/45/2025", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseDueDate(tt.raw, refTime)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseDueDate(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
