package research

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/testutil"
)

func TestSynthesizer_ZeroSections(t *testing.T) {
	model := testutil.NewMockModel()
	s := NewSynthesizer(model, testPrompts(t), testInvoker())

	_, err := s.Synthesize(context.Background(), "topic", nil)
	assert.ErrorIs(t, err, core.ErrSynthesis)
	assert.Empty(t, model.Calls())
}

func TestSynthesizer_ProducesAllParts(t *testing.T) {
	model := scriptedModel(testutil.TestAnalysts(2))
	s := NewSynthesizer(model, testPrompts(t), testInvoker())
	sections := []string{
		"## A\nInsight A [1] and shared [2].\n### Sources\n[1] https://example.com/A\n[2] https://shared.example.org/report",
		"## B\nInsight B [1] and shared [2].\n### Sources\n[1] https://example.com/B\n[2] https://shared.example.org/report",
	}

	out, err := s.Synthesize(context.Background(), "renewable energy", sections)
	require.NoError(t, err)

	assert.Equal(t, IntroductionHeader+"\nIntroduction text", out.Introduction)
	assert.Equal(t, ConclusionHeader+"\nConclusion text", out.Conclusion)
	assert.Contains(t, out.Body, "Insight B [3] and shared [2].")
	assert.Equal(t, 1, strings.Count(out.Body, "shared.example.org"))

	// Every reducer sees every section.
	for _, call := range model.Calls() {
		assert.Contains(t, call.System, "Insight A")
		assert.Contains(t, call.System, "Insight B")
	}
	assert.Equal(t, 3, model.CallCount("GenerateText"))
}

func TestSynthesizer_ReducerFailure(t *testing.T) {
	model := testutil.NewMockModel().WithTextFunc(func(_ context.Context, _ string, conversation []core.Message) (string, error) {
		if conversation[0].Content == writeConclusionRequest {
			return "", core.ErrAuth("revoked")
		}
		return "ok", nil
	})
	s := NewSynthesizer(model, testPrompts(t), testInvoker())

	_, err := s.Synthesize(context.Background(), "topic", []string{"section"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSynthesis)
	assert.Equal(t, "SynthesisError", core.ErrorKind(err))
	assert.Contains(t, err.Error(), "write_conclusion")
}
