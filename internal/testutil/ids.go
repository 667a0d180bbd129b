package testutil

// FixedRunID is the run ID returned by FixedIDGenerator by default.
const FixedRunID = "00000000-0000-7000-8000-000000000001"

// FixedIDGenerator returns the same run ID every time, so reports and
// store rows are byte-identical across test runs.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id. An empty id selects
// FixedRunID.
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = FixedRunID
	}
	return &FixedIDGenerator{id: id}
}

// NewRunID returns the fixed ID.
func (g *FixedIDGenerator) NewRunID() string {
	return g.id
}
