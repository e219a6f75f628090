package research

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/logging"
)

var searchQuerySchema = core.OutputSchema{
	Name:        "search_query",
	Description: "Search query for retrieval.",
	Schema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "search_query": {"type": "string", "description": "Search query for retrieval."}
  },
  "required": ["search_query"]
}`),
}

// interviewStep is a node of the interview state machine.
type interviewStep int

const (
	stepAskQuestion interviewStep = iota
	stepSearchEvidence
	stepAnswerQuestion
	stepRoute
	stepSaveTranscript
	stepWriteSection
	stepDone
)

func (s interviewStep) String() string {
	switch s {
	case stepAskQuestion:
		return "ask_question"
	case stepSearchEvidence:
		return "search_evidence"
	case stepAnswerQuestion:
		return "answer_question"
	case stepRoute:
		return "route"
	case stepSaveTranscript:
		return "save_transcript"
	case stepWriteSection:
		return "write_section"
	default:
		return "done"
	}
}

// ShouldEndInterview reports whether the interview is over: the expert has
// answered maxTurns times, or the latest question closes the interview. The
// latest question is the message before the latest answer, so the closing
// check needs at least two messages.
func ShouldEndInterview(messages []core.Message, maxTurns int) bool {
	answers := 0
	for _, m := range messages {
		if m.IsExpertAnswer() {
			answers++
		}
	}
	if answers >= maxTurns {
		return true
	}
	if len(messages) < 2 {
		return false
	}
	return strings.Contains(messages[len(messages)-2].Content, core.ClosingPhrase)
}

// Transcript renders messages one speaker-prefixed entry per line.
func Transcript(messages []core.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, m.Speaker()+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// Interviewer runs the interview sub-workflow for one analyst.
type Interviewer struct {
	model      core.LanguageModel
	retrievers []Retriever
	prompts    *PromptRenderer
	inv        invoker
	logger     *logging.Logger
}

// NewInterviewer creates an interviewer querying every retriever on each turn.
func NewInterviewer(model core.LanguageModel, prompts *PromptRenderer, inv invoker, retrievers ...Retriever) *Interviewer {
	return &Interviewer{
		model:      model,
		retrievers: retrievers,
		prompts:    prompts,
		inv:        inv,
		logger:     inv.logger,
	}
}

// Run executes the state machine from the opening message to the written
// section. Any failed call aborts the interview with ErrInterviewAborted; the
// returned state holds what was gathered so far.
func (iv *Interviewer) Run(ctx context.Context, analyst core.Analyst, topic string, maxTurns int) (*core.InterviewState, error) {
	if maxTurns < 1 {
		maxTurns = 1
	}
	state := &core.InterviewState{
		Analyst:  analyst,
		Messages: []core.Message{OpeningMessage(topic)},
		MaxTurns: maxTurns,
	}
	logger := iv.logger.WithAnalyst(analyst.Name)

	step := stepAskQuestion
	for step != stepDone {
		if err := ctx.Err(); err != nil {
			return state, core.ErrInterviewAbortedFor(analyst.Name, err)
		}

		var err error
		next := stepDone
		switch step {
		case stepAskQuestion:
			err = iv.askQuestion(ctx, state)
			next = stepSearchEvidence
		case stepSearchEvidence:
			err = iv.searchEvidence(ctx, state)
			next = stepAnswerQuestion
		case stepAnswerQuestion:
			err = iv.answerQuestion(ctx, state)
			next = stepRoute
		case stepRoute:
			next = stepAskQuestion
			if ShouldEndInterview(state.Messages, state.MaxTurns) {
				next = stepSaveTranscript
			}
		case stepSaveTranscript:
			state.Transcript = Transcript(state.Messages)
			next = stepWriteSection
		case stepWriteSection:
			err = iv.writeSection(ctx, state)
		}
		if err != nil {
			logger.Warn("interview aborted", "step", step.String(), "error", err)
			return state, core.ErrInterviewAbortedFor(analyst.Name, err)
		}
		logger.Debug("interview step finished", "step", step.String(), "turn", state.TurnsTaken)
		step = next
	}
	return state, nil
}

func (iv *Interviewer) askQuestion(ctx context.Context, state *core.InterviewState) error {
	system, err := iv.prompts.RenderQuestion(state.Analyst.Persona())
	if err != nil {
		return err
	}
	question, err := invoke(ctx, iv.inv, "ask_question", func(ctx context.Context) (string, error) {
		return iv.model.GenerateText(ctx, system, state.Messages)
	})
	if err != nil {
		return asGenerationError("asking question", err)
	}
	state.Messages = append(state.Messages, core.AssistantMessage(state.Analyst.Name, question))
	return nil
}

// searchEvidence runs every retriever concurrently. Each branch appends to
// the shared accumulator; the accumulator keeps a canonical order, so arrival
// order does not matter.
func (iv *Interviewer) searchEvidence(ctx context.Context, state *core.InterviewState) error {
	turn := state.TurnsTaken + 1
	messages := append([]core.Message(nil), state.Messages...)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range iv.retrievers {
		g.Go(func() error {
			content, err := iv.retrieve(gctx, r, messages)
			if err != nil {
				return err
			}
			if content == "" {
				return nil
			}
			mu.Lock()
			state.EvidenceContext = state.EvidenceContext.Append(core.Evidence{
				Turn:     turn,
				Provider: r.Name(),
				Content:  content,
			})
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// retrieve derives a query from the conversation, searches, and formats.
func (iv *Interviewer) retrieve(ctx context.Context, r Retriever, messages []core.Message) (string, error) {
	system, err := iv.prompts.RenderSearchQuery()
	if err != nil {
		return "", err
	}
	query, err := invoke(ctx, iv.inv, "search_query", func(ctx context.Context) (string, error) {
		raw, err := iv.model.GenerateStructured(ctx, system, messages, searchQuerySchema)
		if err != nil {
			return "", err
		}
		var out struct {
			SearchQuery string `json:"search_query"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", core.ErrGenerationFailed("search query is not valid JSON").WithCause(err)
		}
		if strings.TrimSpace(out.SearchQuery) == "" {
			return "", core.ErrGenerationFailed("empty search query")
		}
		return out.SearchQuery, nil
	})
	if err != nil {
		return "", asGenerationError("formulating "+r.Name()+" query", err)
	}

	docs, err := invoke(ctx, iv.inv, "retrieve_"+r.Name(), func(ctx context.Context) ([]Document, error) {
		return r.Retrieve(ctx, query)
	})
	if err != nil {
		return "", asRetrievalError(r.Name()+" search failed", err)
	}
	return FormatDocuments(docs), nil
}

func (iv *Interviewer) answerQuestion(ctx context.Context, state *core.InterviewState) error {
	system, err := iv.prompts.RenderAnswer(state.Analyst.Persona(), state.Context())
	if err != nil {
		return err
	}
	answer, err := invoke(ctx, iv.inv, "answer_question", func(ctx context.Context) (string, error) {
		return iv.model.GenerateText(ctx, system, state.Messages)
	})
	if err != nil {
		return asGenerationError("answering question", err)
	}
	state.Messages = append(state.Messages, core.AssistantMessage(core.ExpertName, answer))
	state.TurnsTaken++
	return nil
}

// writeSection uses the evidence, not the transcript.
func (iv *Interviewer) writeSection(ctx context.Context, state *core.InterviewState) error {
	system, err := iv.prompts.RenderSection(state.Analyst.Description)
	if err != nil {
		return err
	}
	conversation := []core.Message{core.UserMessage(writeSectionRequest + state.Context())}
	section, err := invoke(ctx, iv.inv, "write_section", func(ctx context.Context) (string, error) {
		return iv.model.GenerateText(ctx, system, conversation)
	})
	if err != nil {
		return asGenerationError("writing section", err)
	}
	state.Section = ConsolidateSources(strings.TrimSpace(section))
	return nil
}
