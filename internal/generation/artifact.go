package generation

import (
	"path"
	"sort"
	"strings"
)

// ArtifactKind tags the content kind of a generated file.
type ArtifactKind string

const (
	ArtifactKindCode       ArtifactKind = "code"
	ArtifactKindMarkup     ArtifactKind = "markup"
	ArtifactKindStylesheet ArtifactKind = "stylesheet"
	ArtifactKindConfig     ArtifactKind = "config"
	ArtifactKindSchema     ArtifactKind = "schema"
	ArtifactKindDoc        ArtifactKind = "doc"
	ArtifactKindOther      ArtifactKind = "other"
)

// Artifact is one named generated file.
type Artifact struct {
	Name    string       `json:"name"`
	Content string       `json:"content"`
	Kind    ArtifactKind `json:"kind"`
}

// KindForName infers the content kind from a file name.
func KindForName(name string) ArtifactKind {
	switch strings.ToLower(path.Ext(name)) {
	case ".go", ".js", ".jsx", ".ts", ".tsx", ".py", ".rb", ".java", ".rs":
		return ArtifactKindCode
	case ".html", ".htm", ".vue", ".svelte":
		return ArtifactKindMarkup
	case ".css", ".scss", ".less":
		return ArtifactKindStylesheet
	case ".json", ".yaml", ".yml", ".toml", ".env":
		return ArtifactKindConfig
	case ".sql", ".prisma", ".proto":
		return ArtifactKindSchema
	case ".md", ".txt":
		return ArtifactKindDoc
	default:
		return ArtifactKindOther
	}
}

// ArtifactSet is a collection of artifacts keyed by file name. Writes from a
// later pipeline stage override earlier writes with the same name, so merge
// order must be deterministic.
type ArtifactSet struct {
	byName map[string]Artifact
}

// NewArtifactSet returns an empty set.
func NewArtifactSet() *ArtifactSet {
	return &ArtifactSet{byName: make(map[string]Artifact)}
}

// Put inserts an artifact, overriding any existing artifact with the same name.
func (s *ArtifactSet) Put(a Artifact) {
	if a.Kind == "" {
		a.Kind = KindForName(a.Name)
	}
	s.byName[a.Name] = a
}

// Merge inserts artifacts in slice order. Callers are responsible for
// presenting artifacts in fixed role order so overrides resolve predictably.
func (s *ArtifactSet) Merge(artifacts []Artifact) {
	for _, a := range artifacts {
		s.Put(a)
	}
}

// Get returns the artifact with the given name.
func (s *ArtifactSet) Get(name string) (Artifact, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// Len returns the number of distinct file names in the set.
func (s *ArtifactSet) Len() int {
	return len(s.byName)
}

// List returns all artifacts ordered by file name.
func (s *ArtifactSet) List() []Artifact {
	out := make([]Artifact, 0, len(s.byName))
	for _, a := range s.byName {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
