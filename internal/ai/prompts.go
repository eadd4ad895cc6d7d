package ai

import (
	"encoding/json"
	"fmt"

	"github.com/supportops/support-digest/internal/digest"
)

// promptTemplate is the instruction block sent as the system message. The
// Slack link is preformatted so the model never has to reconstruct repo
// names or issue numbers. Placeholders: category, Slack link, category
// checklist.
const promptTemplate = `You are a support-engineering assistant summarizing a GitHub issue for a Slack digest.

The user message is a JSON document:
- "issue" holds the issue metadata, the full body text, and every comment; each comment carries an "is_recent_activity" flag marking what is new in this window
- "issue_category" is %q

Use the whole comment history to understand the conversation, but focus the summary on what changed recently (comments with "is_recent_activity": true). Reference older comments only where they explain the recent activity.

Output rules:
- Produce exactly ONE Slack-formatted bullet:
  • %s · *title* — <summary>
- Concise, active-voice fragments; ignore bot noise.
- Quote a key log line or error in ` + "```" + ` blocks when it helps.
- Do not change the repo name or issue number; reuse the link above exactly as given.
- Convert every URL to a Slack hyperlink <url|text>; never paste raw URLs.
- Link follow-up or mentioned issues the same way (<https://github.com/org/repo/issues/45|repo#45>); assume the current repo unless another one is named.

Cover when present: a one-sentence problem statement, repro steps, the key error, workarounds tried or suggested, suspected root cause, expectations set with the customer, and follow-up issues created (always linked).

%s`

func categoryChecklist(category digest.Category) string {
	switch category {
	case digest.NewlyOpened:
		return `For a newly opened issue, also capture:
- customer or tenant and severity
- environment (product and version, OS or cluster)
- any follow-up issues already created`
	case digest.Updated:
		return `For an updated issue, also capture:
- what changed in this window (comments, labels, linked PRs)
- how the change fits the overall progression
- decisions made or configuration changes applied
- current progress state (e.g. waiting on a customer reply or a support bundle)
- new blockers or unanswered questions
- severity or priority changes`
	case digest.Closed:
		return `For a closed issue, also capture:
- resolution type (fix, docs change, won't fix, duplicate)
- confirmed root cause in one sentence
- who verified the fix and how
- the PR or commit that closed it
- docs or KB updates
- total time to resolution`
	}
	return ""
}

func systemPrompt(item digest.CandidateItem, category digest.Category) string {
	return fmt.Sprintf(promptTemplate, string(category), item.SlackLink(), categoryChecklist(category))
}

// userPayload renders the JSON document sent as the user message.
func userPayload(item digest.CandidateItem, category digest.Category) (string, error) {
	payload := struct {
		Issue    digest.CandidateItem `json:"issue"`
		Category digest.Category      `json:"issue_category"`
	}{item, category}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding item payload: %w", err)
	}
	return string(b), nil
}
