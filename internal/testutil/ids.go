package testutil

// FixedIDGenerator returns the same batch id every time.
//
// This enables deterministic test execution and golden snapshot comparison:
// log lines and results of a scenario carry an identical batch id on every run.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed batch id generator.
// If id is empty, Generate() returns "test-batch-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-batch-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
