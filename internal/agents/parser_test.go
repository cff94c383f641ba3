package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/forged/internal/generation"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "bare JSON",
			input: `{"summary": "a todo app", "features": ["add", "list"], "technologies": ["react"]}`,
		},
		{
			name:  "fenced JSON",
			input: "```json\n{\"summary\": \"a todo app\", \"features\": [\"add\"]}\n```",
		},
		{
			name:  "JSON with surrounding prose",
			input: "Here is the plan:\n{\"summary\": \"a shop\", \"features\": [\"cart\"]}\nLet me know!",
		},
		{
			name:    "no JSON at all",
			input:   "I cannot produce a plan for that request.",
			wantErr: true,
		},
		{
			name:    "empty plan",
			input:   `{"pages": []}`,
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			input:   `{"summary": "oops", "features": [`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ParsePlan(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, plan.Summary)
		})
	}
}

func TestParsePlanNestedAndEscaped(t *testing.T) {
	input := `{"summary": "uses \"quotes\" and {braces}", "features": ["x"], "data_model": [{"name": "User", "fields": ["id"]}]}`
	plan, err := ParsePlan(input)
	require.NoError(t, err)
	assert.Equal(t, `uses "quotes" and {braces}`, plan.Summary)
	require.Len(t, plan.DataModel, 1)
	assert.Equal(t, "User", plan.DataModel[0].Name)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantStatus generation.ReviewStatus
		wantScore  int
		wantErr    bool
	}{
		{
			name:       "approve",
			input:      `{"status": "approve", "quality_score": 88}`,
			wantStatus: generation.ReviewApprove,
			wantScore:  88,
		},
		{
			name:       "status synonym normalized",
			input:      `{"status": "Approved", "quality_score": 90}`,
			wantStatus: generation.ReviewApprove,
			wantScore:  90,
		},
		{
			name:       "iterate with feedback",
			input:      `{"status": "iterate", "feedback": ["login page missing"], "quality_score": 40}`,
			wantStatus: generation.ReviewIterate,
			wantScore:  40,
		},
		{
			name:       "score clamped",
			input:      `{"status": "approve", "quality_score": 400}`,
			wantStatus: generation.ReviewApprove,
			wantScore:  100,
		},
		{
			name:    "unknown status",
			input:   `{"status": "maybe", "quality_score": 50}`,
			wantErr: true,
		},
		{
			name:    "prose only",
			input:   "Looks good to me!",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVerdict(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, v.Status)
			assert.Equal(t, tt.wantScore, v.QualityScore)
		})
	}
}

func TestParseArtifacts(t *testing.T) {
	input := "// File: index.html\n```html\n<html><body>hi</body></html>\n```\n\n" +
		"// File: src/app.js\n```js\nconsole.log('hi');\n```\n"

	got := ParseArtifacts(input)
	require.Len(t, got, 2)

	assert.Equal(t, "index.html", got[0].Name)
	assert.Equal(t, "<html><body>hi</body></html>", got[0].Content)
	assert.Equal(t, generation.ArtifactKindMarkup, got[0].Kind)

	assert.Equal(t, "src/app.js", got[1].Name)
	assert.Equal(t, "console.log('hi');", got[1].Content)
	assert.Equal(t, generation.ArtifactKindCode, got[1].Kind)
}

func TestParseArtifactsHeaderWithoutFence(t *testing.T) {
	input := "// File: notes.md\nJust some raw text without a fence.\n\n" +
		"// File: schema.sql\n```sql\nCREATE TABLE t (id int);\n```"

	got := ParseArtifacts(input)
	require.Len(t, got, 2)
	assert.Equal(t, "Just some raw text without a fence.", got[0].Content)
	assert.Equal(t, "CREATE TABLE t (id int);", got[1].Content)
}

func TestParseArtifactsUnterminatedFence(t *testing.T) {
	input := "// File: app.py\n```python\nprint('partial output"

	got := ParseArtifacts(input)
	require.Len(t, got, 1)
	assert.Equal(t, "print('partial output", got[0].Content)
}

func TestParseArtifactsNoFiles(t *testing.T) {
	assert.Nil(t, ParseArtifacts("I was unable to generate any files."))
	assert.Nil(t, ParseArtifacts(""))
}
