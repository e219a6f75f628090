package research

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/testutil"
)

func TestShouldEndInterview(t *testing.T) {
	analyst := "Dr. Vega"
	tests := []struct {
		name     string
		messages []core.Message
		maxTurns int
		want     bool
	}{
		{
			name:     "opening only",
			messages: []core.Message{OpeningMessage("t")},
			maxTurns: 2,
			want:     false,
		},
		{
			name: "closing phrase as first question",
			messages: []core.Message{
				core.AssistantMessage(analyst, core.ClosingPhrase),
			},
			maxTurns: 2,
			want:     false,
		},
		{
			name: "below max turns",
			messages: []core.Message{
				OpeningMessage("t"),
				core.AssistantMessage(analyst, "q1"),
				core.AssistantMessage(core.ExpertName, "a1"),
			},
			maxTurns: 2,
			want:     false,
		},
		{
			name: "max turns reached",
			messages: []core.Message{
				OpeningMessage("t"),
				core.AssistantMessage(analyst, "q1"),
				core.AssistantMessage(core.ExpertName, "a1"),
				core.AssistantMessage(analyst, "q2"),
				core.AssistantMessage(core.ExpertName, "a2"),
			},
			maxTurns: 2,
			want:     true,
		},
		{
			name: "analyst closes the interview",
			messages: []core.Message{
				OpeningMessage("t"),
				core.AssistantMessage(analyst, "Great. "+core.ClosingPhrase),
				core.AssistantMessage(core.ExpertName, "You are welcome."),
			},
			maxTurns: 5,
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldEndInterview(tt.messages, tt.maxTurns))
		})
	}
}

func TestTranscript(t *testing.T) {
	got := Transcript([]core.Message{
		core.UserMessage("So you said?"),
		core.AssistantMessage("Dr. Vega", "Why?"),
		core.AssistantMessage(core.ExpertName, "Because."),
		{Role: core.RoleAssistant, Content: "unnamed"},
	})
	assert.Equal(t, "Human: So you said?\nDr. Vega: Why?\nexpert: Because.\nAI: unnamed", got)
}

func TestInterviewer_Run(t *testing.T) {
	analyst := testutil.TestAnalysts(1)[0]
	model := scriptedModel([]core.Analyst{analyst})
	web := testutil.NewMockWebSearcher(core.WebResult{URL: "https://example.com/a", Content: "web fact"})
	kb := testutil.NewMockKnowledgeBase(core.KnowledgeDocument{Source: "https://en.wikipedia.org/wiki/A", Page: "A", Content: "kb fact"})
	iv := NewInterviewer(model, testPrompts(t), testInvoker(), NewWebRetriever(web), NewKnowledgeRetriever(kb, 2))

	state, err := iv.Run(context.Background(), analyst, "renewable energy", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, state.TurnsTaken)
	assert.Equal(t, 2, state.ExpertAnswers())
	// opening, q1, a1, q2, a2
	require.Len(t, state.Messages, 5)
	assert.Equal(t, core.RoleUser, state.Messages[0].Role)
	assert.Equal(t, core.RoleAssistant, state.Messages[1].Role)
	assert.Equal(t, analyst.Name, state.Messages[1].Name)
	assert.Equal(t, core.RoleAssistant, state.Messages[2].Role)
	assert.Equal(t, core.ExpertName, state.Messages[2].Name)
	assert.Equal(t, 2, web.CallCount("SearchWeb"))
	assert.Equal(t, 2, kb.CallCount("SearchKnowledgeBase"))
	assert.Equal(t, analyst.Name+" query", web.Calls()[0].Query)

	// One web and one knowledge record per turn, in canonical order.
	require.Len(t, state.EvidenceContext, 4)
	assert.Equal(t, 1, state.EvidenceContext[0].Turn)
	assert.Equal(t, ProviderKnowledge, state.EvidenceContext[0].Provider)
	assert.Equal(t, ProviderWeb, state.EvidenceContext[1].Provider)
	assert.Equal(t, 2, state.EvidenceContext[3].Turn)

	// The expert sees the evidence.
	answers := model.CallsWithSystem("being interviewed")
	require.Len(t, answers, 2)
	assert.Contains(t, answers[0].System, "web fact")
	assert.Contains(t, answers[0].System, `page="A"`)

	assert.Contains(t, state.Transcript, "expert: It depends")
	assert.Contains(t, state.Section, "Insight A")
}

func TestInterviewer_RetrievalFailureAborts(t *testing.T) {
	analyst := testutil.TestAnalysts(1)[0]
	model := scriptedModel([]core.Analyst{analyst})
	web := testutil.NewMockWebSearcher().WithError(core.ErrAuth("bad key"))
	iv := NewInterviewer(model, testPrompts(t), testInvoker(), NewWebRetriever(web))

	state, err := iv.Run(context.Background(), analyst, "renewable energy", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInterviewAborted)
	assert.ErrorIs(t, err, core.ErrRetrieval)
	require.NotNil(t, state)
	assert.Empty(t, state.Section)
	// The question was asked before retrieval failed.
	assert.Len(t, state.Messages, 2)
}

func TestInterviewer_CancelledContext(t *testing.T) {
	analyst := testutil.TestAnalysts(1)[0]
	iv := NewInterviewer(scriptedModel([]core.Analyst{analyst}), testPrompts(t), testInvoker())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := iv.Run(ctx, analyst, "t", 1)
	assert.ErrorIs(t, err, core.ErrInterviewAborted)
	assert.True(t, errors.Is(err, context.Canceled))
}

type delayedRetriever struct {
	name  string
	delay time.Duration
	docs  []Document
}

func (r delayedRetriever) Name() string { return r.name }

func (r delayedRetriever) Retrieve(ctx context.Context, _ string) ([]Document, error) {
	select {
	case <-time.After(r.delay):
		return r.docs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestInterviewer_EvidenceOrderIsIndependentOfArrival(t *testing.T) {
	analyst := testutil.TestAnalysts(1)[0]
	fast := func(name, content string) delayedRetriever {
		return delayedRetriever{name: name, docs: []Document{{Source: name, Content: content}}}
	}
	slow := func(name, content string) delayedRetriever {
		r := fast(name, content)
		r.delay = 30 * time.Millisecond
		return r
	}

	run := func(retrievers ...Retriever) core.Accumulator[core.Evidence] {
		state := &core.InterviewState{
			Analyst:  analyst,
			Messages: []core.Message{OpeningMessage("t"), core.AssistantMessage(analyst.Name, "q")},
		}
		iv := NewInterviewer(scriptedModel([]core.Analyst{analyst}), testPrompts(t), testInvoker(), retrievers...)
		require.NoError(t, iv.searchEvidence(context.Background(), state))
		return state.EvidenceContext
	}

	first := run(slow("web", "w"), fast("knowledge", "k"))
	second := run(fast("web", "w"), slow("knowledge", "k"))
	reversed := run(fast("knowledge", "k"), slow("web", "w"))

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, first, reversed)
}
