package relevance

import (
	"fmt"
	"strings"

	"interlink/internal/core"
)

// BuildScoringPrompt creates the batched relevance prompt. Candidates are
// numbered in order and the answer must keep that order.
func BuildScoringPrompt(source Source, candidates []core.Candidate) string {
	var prompt strings.Builder

	prompt.WriteString("You judge internal links for a content site. Most candidates should be rejected.\n\n")
	prompt.WriteString(fmt.Sprintf("SOURCE ARTICLE: %q\n", source.Topic))
	if source.Excerpt != "" {
		prompt.WriteString(fmt.Sprintf("Description: %s\n", source.Excerpt))
	}

	prompt.WriteString("\nCANDIDATE TARGETS:\n")
	for i, c := range candidates {
		prompt.WriteString(fmt.Sprintf("%d. %q\n", i+1, c.Title))
	}

	prompt.WriteString(`
For each candidate return:
- score: integer 1-10
- anchors: 2-4 specific phrases a reader could click
- anti: phrases that look similar but mean something else in this niche
- intent: 5-10 words on what the target teaches

SCORING:
- 9-10: the target directly answers a question the source reader will have
- 7-8: a closely related sub-topic with real value to the same reader
- 4-6: same broad category, different focus. Do not link.
- 1-3: unrelated apart from the niche

Score 5 or lower when the only connection is the shared niche, when a reader
would wonder why the link is there, or when the only possible anchor is a
single generic word or a bare proper noun.

ANCHORS:
- 2-5 words describing what the target teaches
- never a single generic word, a lone proper noun, or a vague category phrase
- good: "grip pressure mistakes", "driver loft selection"
- bad: "equipment", "The Masters", "golf tips"

Respond with ONLY a JSON array, one object per candidate in the same order:
[{"score": 8, "anchors": ["specific phrase"], "anti": ["look-alike"], "intent": "core concept"}, {"score": 2, "anchors": [], "anti": [], "intent": ""}]`)

	return prompt.String()
}
