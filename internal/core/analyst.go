package core

import (
	"fmt"
	"strings"
)

// Analyst is a synthetic viewpoint that drives one interview.
// Values are never mutated once generated.
type Analyst struct {
	Name        string `json:"name" yaml:"name"`
	Role        string `json:"role" yaml:"role"`
	Affiliation string `json:"affiliation" yaml:"affiliation"`
	Description string `json:"description" yaml:"description"`
}

// Persona formats the analyst for prompt construction.
func (a Analyst) Persona() string {
	return fmt.Sprintf("Name: %s\nRole: %s\nAffiliation: %s\nDescription: %s\n",
		a.Name, a.Role, a.Affiliation, a.Description)
}

// Validate checks that the analyst can drive an interview.
func (a Analyst) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("analyst name is required")
	}
	if strings.TrimSpace(a.Description) == "" {
		return fmt.Errorf("analyst %q has no description", a.Name)
	}
	return nil
}

// CloneAnalysts returns a copy of the slice.
func CloneAnalysts(in []Analyst) []Analyst {
	if in == nil {
		return nil
	}
	out := make([]Analyst, len(in))
	copy(out, in)
	return out
}
