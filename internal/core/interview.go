package core

import (
	"fmt"
	"strings"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ExpertName tags messages produced by the answering expert.
const ExpertName = "expert"

// ClosingPhrase ends an interview when it appears in the latest question.
const ClosingPhrase = "Thank you so much for your help!"

// Message is one entry of an interview conversation.
type Message struct {
	Role    Role   `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message with an optional speaker name.
func AssistantMessage(name, content string) Message {
	return Message{Role: RoleAssistant, Name: name, Content: content}
}

// IsExpertAnswer reports whether m was produced by the expert.
func (m Message) IsExpertAnswer() bool {
	return m.Role == RoleAssistant && m.Name == ExpertName
}

// Speaker returns the transcript prefix for m.
func (m Message) Speaker() string {
	if m.Name != "" {
		return m.Name
	}
	if m.Role == RoleUser {
		return "Human"
	}
	return "AI"
}

// Evidence is one formatted retrieval result contributed to an interview.
type Evidence struct {
	Turn     int    `json:"turn"`
	Provider string `json:"provider"`
	Content  string `json:"content"`
}

// SortKey orders evidence by turn, then provider, then content.
func (e Evidence) SortKey() string {
	return fmt.Sprintf("%06d\x00%s\x00%s", e.Turn, e.Provider, e.Content)
}

// Section is the report fragment produced by one interview.
type Section struct {
	AnalystIndex int    `json:"analyst_index"`
	Analyst      string `json:"analyst"`
	Content      string `json:"content"`
}

// SortKey orders sections by the analyst's position in the panel.
func (s Section) SortKey() string {
	return fmt.Sprintf("%06d\x00%s\x00%s", s.AnalystIndex, s.Analyst, s.Content)
}

// InterviewState is the state of one interview sub-workflow. It never
// outlives the interview; only an InterviewRecord is persisted.
type InterviewState struct {
	Analyst         Analyst
	Messages        []Message
	EvidenceContext Accumulator[Evidence]
	TurnsTaken      int
	MaxTurns        int
	Transcript      string
	Section         string
}

// ExpertAnswers counts the answers given so far.
func (s *InterviewState) ExpertAnswers() int {
	n := 0
	for _, m := range s.Messages {
		if m.IsExpertAnswer() {
			n++
		}
	}
	return n
}

// Context joins the accumulated evidence with the document separator.
func (s *InterviewState) Context() string {
	parts := make([]string, 0, len(s.EvidenceContext))
	for _, e := range s.EvidenceContext {
		parts = append(parts, e.Content)
	}
	return strings.Join(parts, DocumentSeparator)
}

// DocumentSeparator joins formatted documents.
const DocumentSeparator = "\n\n---\n\n"

// InterviewOutcome is the persisted result of one interview.
type InterviewOutcome string

const (
	InterviewCompleted InterviewOutcome = "completed"
	InterviewAborted   InterviewOutcome = "aborted"
	InterviewSkipped   InterviewOutcome = "skipped"
)

// InterviewRecord summarizes an interview in the run state.
type InterviewRecord struct {
	AnalystIndex int              `json:"analyst_index"`
	Analyst      string           `json:"analyst"`
	Outcome      InterviewOutcome `json:"outcome"`
	Answers      int              `json:"answers"`
	Transcript   string           `json:"transcript,omitempty"`
	Error        string           `json:"error,omitempty"`
}
