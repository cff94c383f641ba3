package generation

// EntityOutline sketches one entity of the planned data model.
type EntityOutline struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields,omitempty"`
}

// ArchitecturePlan is the planner's structured output. It is produced once
// per run and consumed read-only by all producers, including across review
// iterations.
type ArchitecturePlan struct {
	Summary      string          `json:"summary"`
	Features     []string        `json:"features"`
	Technologies []string        `json:"technologies"`
	DataModel    []EntityOutline `json:"data_model,omitempty"`
	Pages        []string        `json:"pages,omitempty"`
}
