package agents

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/forged/internal/generation"
)

const plannerInstructions = `You are a senior software architect. Given a user request and any
conversation context, design the architecture for the project.

Respond with a single JSON object and nothing else:
{
  "summary": "one-paragraph description of the project",
  "features": ["feature 1", "feature 2"],
  "technologies": ["technology 1", "technology 2"],
  "data_model": [{"name": "Entity", "fields": ["field1", "field2"]}],
  "pages": ["page or screen names"]
}

Keep the plan concrete and minimal. Do not include markdown fences or prose
outside the JSON object.`

const plannerReformatInstructions = `Your previous response could not be parsed as JSON. Respond again
with ONLY the JSON object describing the plan. No markdown fences, no
explanation, no text before or after the object.`

const reviewerInstructions = `You are a meticulous code reviewer. You receive the complete file set of a
generated project. Judge whether it is coherent and complete: files reference
each other consistently, the stated technologies match the code, and nothing
essential is missing or obviously broken.

Respond with a single JSON object and nothing else:
{
  "status": "approve" or "iterate",
  "feedback": ["specific, actionable issue 1", "issue 2"],
  "quality_score": 0-100
}

Use "iterate" only for concrete defects you can name in feedback. Do not
include markdown fences or prose outside the JSON object.`

// producerScopes holds the responsibility statement for each known producer
// role. The shared output contract is appended by producerInstructions.
var producerScopes = map[Role]string{
	RoleUI: `You are a frontend specialist. Generate the user interface files:
markup, styles, and client-side code. Follow the plan's pages and features.
Reference the API endpoints the backend exposes but do not implement them.`,

	RoleAPI: `You are a backend specialist. Generate the server-side files:
routes, handlers, and business logic. Implement the plan's features as API
endpoints and wire them to the data model. Do not generate UI markup.`,

	RoleData: `You are a data specialist. Generate the persistence files:
schema definitions, migrations, and data-access code matching the plan's
data model exactly. Do not generate routes or UI.`,
}

const genericProducerScope = `You are a software specialist. Generate the project files for your
assigned responsibility, following the plan.`

const producerOutputContract = `Output every file with a header comment naming its path, followed by a
fenced code block with the complete file content:

// File: path/to/file.ext
` + "```" + `
file content here
` + "```" + `

Output only file headers and code blocks. Every file must be complete;
never elide content.`

func producerInstructions(role Role) string {
	scope, ok := producerScopes[role]
	if !ok {
		scope = genericProducerScope
	}
	return scope + "\n\n" + producerOutputContract
}

// renderContext flattens a conversation context into the prompt payload: the
// turn history in order, then the current file set. File order is sorted so
// identical contexts always render identically.
func renderContext(cc *generation.ConversationContext) string {
	var sb strings.Builder

	for _, t := range cc.Turns {
		sb.WriteString("[")
		sb.WriteString(string(t.Role))
		sb.WriteString("] ")
		sb.WriteString(t.Text)
		sb.WriteString("\n\n")
	}

	if len(cc.Files) > 0 {
		names := make([]string, 0, len(cc.Files))
		for name := range cc.Files {
			names = append(names, name)
		}
		sort.Strings(names)

		sb.WriteString("Current project files:\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "\n--- %s ---\n%s\n", name, cc.Files[name])
		}
	}

	return sb.String()
}

// renderPlan flattens the architecture plan into prompt text.
func renderPlan(plan *generation.ArchitecturePlan) string {
	var sb strings.Builder
	sb.WriteString("Architecture plan:\n")
	sb.WriteString("Summary: ")
	sb.WriteString(plan.Summary)
	sb.WriteString("\n")

	writeList := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(strings.Join(items, ", "))
		sb.WriteString("\n")
	}
	writeList("Features", plan.Features)
	writeList("Technologies", plan.Technologies)
	writeList("Pages", plan.Pages)

	if len(plan.DataModel) > 0 {
		sb.WriteString("Data model:\n")
		for _, e := range plan.DataModel {
			fmt.Fprintf(&sb, "  %s (%s)\n", e.Name, strings.Join(e.Fields, ", "))
		}
	}

	return sb.String()
}

// renderArtifacts flattens a merged artifact set into the reviewer's payload.
func renderArtifacts(artifacts []generation.Artifact) string {
	var sb strings.Builder
	sb.WriteString("Generated project files:\n")
	for _, a := range artifacts {
		fmt.Fprintf(&sb, "\n--- %s ---\n%s\n", a.Name, a.Content)
	}
	return sb.String()
}
