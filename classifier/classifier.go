package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"newspilot/metrics"
	"newspilot/models"
	"newspilot/retry"
)

// ErrUnclassifiable marks model output that could not be canonicalized to
// the fixed taxonomy. Callers drop the candidate; the rejection is counted
// so the drop stays observable.
var ErrUnclassifiable = errors.New("classifier: category outside taxonomy")

// Result is a classified candidate ready to become a suggestion.
type Result struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

const systemInstructionTemplate = `
You are a news triage assistant for an automated publishing pipeline. You receive one candidate news item (title, snippet and a category hint from its source feed) and must classify it.
The response MUST be a valid JSON object with three keys:
1.  title: A cleaned-up headline for the item, in the item's language.
2.  summary: A neutral summary of the item in at most 2 sentences.
3.  category: EXACTLY ONE of the following allowed categories: %s. Never invent a category outside this list.
The category hint is a prior, not ground truth; override it when the content clearly belongs elsewhere.
You MUST NOT wrap the JSON output in a markdown code block (e.g. ` + "```json ... ```" + `). The response should contain ONLY the raw JSON string.
`

// Classifier delegates to Gemini with a closed category instruction and
// fuzzy-matches the reply against the taxonomy.
type Classifier struct {
	model string

	// generate is the single LLM call; swapped out in tests.
	generate func(ctx context.Context, prompt string) (string, error)
}

// New builds a Gemini-backed classifier.
func New(ctx context.Context, apiKey, model string) (*Classifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, err
	}

	instruction := fmt.Sprintf(systemInstructionTemplate, strings.Join(models.Categories, ", "))
	c := &Classifier{model: model}
	c.generate = func(ctx context.Context, prompt string) (string, error) {
		result, err := client.Models.GenerateContent(
			ctx,
			c.model,
			genai.Text(prompt),
			&genai.GenerateContentConfig{
				SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
			},
		)
		if err != nil {
			return "", err
		}
		return result.Text(), nil
	}
	return c, nil
}

// Classify assigns the candidate to exactly one taxonomy category.
// Transient model errors are retried once; an out-of-taxonomy reply returns
// ErrUnclassifiable.
func (c *Classifier) Classify(ctx context.Context, cand models.DiscoveryCandidate) (*Result, error) {
	prompt := fmt.Sprintf("Title: %s\nSnippet: %s\nCategory hint: %s", cand.Title, cand.Snippet, cand.CategoryHint)

	var raw string
	err := retry.WithRetry(ctx, retry.Config{MaxAttempts: 2, Delay: 2 * time.Second}, func() error {
		var genErr error
		raw, genErr = c.generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return nil, fmt.Errorf("classify %q: %w", cand.URL, err)
	}

	var reply Result
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &reply); err != nil {
		return nil, fmt.Errorf("classify %q: decode reply: %w", cand.URL, err)
	}

	category, ok := models.MatchCategory(reply.Category)
	if !ok {
		metrics.Global.IncrementClassificationsRejected()
		return nil, fmt.Errorf("%w: %q", ErrUnclassifiable, reply.Category)
	}
	metrics.Global.IncrementClassificationsAccepted()

	out := &Result{
		Title:    strings.TrimSpace(reply.Title),
		Summary:  strings.TrimSpace(reply.Summary),
		Category: category,
	}
	if out.Title == "" {
		out.Title = cand.Title
	}
	return out, nil
}

// stripCodeFence tolerates models that fence the JSON despite the
// instruction not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
