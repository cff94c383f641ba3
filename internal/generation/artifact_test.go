package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactSetMergeOverride(t *testing.T) {
	set := NewArtifactSet()

	// Earlier producer in the fixed role order.
	set.Merge([]Artifact{
		{Name: "src/index.html", Content: "<html>ui</html>"},
		{Name: "shared/types.ts", Content: "export type A = {}"},
	})

	// Later producer writes the same shared file; its version must win.
	set.Merge([]Artifact{
		{Name: "shared/types.ts", Content: "export type A = { id: string }"},
		{Name: "src/server.ts", Content: "serve()"},
	})

	require.Equal(t, 3, set.Len())

	got, ok := set.Get("shared/types.ts")
	require.True(t, ok)
	assert.Equal(t, "export type A = { id: string }", got.Content)
}

func TestArtifactSetListOrderedByName(t *testing.T) {
	set := NewArtifactSet()
	set.Put(Artifact{Name: "z.go", Content: "z"})
	set.Put(Artifact{Name: "a.go", Content: "a"})
	set.Put(Artifact{Name: "m/main.go", Content: "m"})

	list := set.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a.go", list[0].Name)
	assert.Equal(t, "m/main.go", list[1].Name)
	assert.Equal(t, "z.go", list[2].Name)
}

func TestKindForName(t *testing.T) {
	tests := []struct {
		name string
		want ArtifactKind
	}{
		{"src/App.tsx", ArtifactKindCode},
		{"index.html", ArtifactKindMarkup},
		{"styles/main.css", ArtifactKindStylesheet},
		{"package.json", ArtifactKindConfig},
		{"db/schema.sql", ArtifactKindSchema},
		{"README.md", ArtifactKindDoc},
		{"LICENSE", ArtifactKindOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindForName(tt.name), tt.name)
	}
}

func TestRequestContext(t *testing.T) {
	req := Request{
		Prompt:  "build a todo app",
		History: []Turn{{Role: TurnRoleUser, Text: "hi"}, {Role: TurnRoleAssistant, Text: "hello"}},
		Files:   map[string]string{"old.ts": "legacy"},
	}

	cc := req.Context()
	require.Len(t, cc.Turns, 3)
	assert.Equal(t, TurnRoleUser, cc.Turns[2].Role)
	assert.Equal(t, "build a todo app", cc.Turns[2].Text)

	// The context owns a copy of the file set.
	cc.Files["old.ts"] = "mutated"
	assert.Equal(t, "legacy", req.Files["old.ts"])
}

func TestConversationContextWithTurn(t *testing.T) {
	cc := &ConversationContext{Turns: []Turn{{Role: TurnRoleUser, Text: "a"}}}
	next := cc.WithTurn(Turn{Role: TurnRoleSystem, Text: "feedback"})

	require.Len(t, cc.Turns, 1, "original must not be mutated")
	require.Len(t, next.Turns, 2)
	assert.Equal(t, "feedback", next.Turns[1].Text)
}
