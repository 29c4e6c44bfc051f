package embeddings

import "context"

// MockBackend is a deterministic, in-memory embedding backend for
// tests: it returns a fixed-dimension vector derived from the length
// and first bytes of each input, so identical inputs always embed
// identically.
type MockBackend struct {
	NameValue string
	Caps      []Capability
	Dims      int
}

func NewMockBackend(name string, dims int, caps ...Capability) *MockBackend {
	if len(caps) == 0 {
		caps = []Capability{CapabilityTextEmbedding, CapabilityCodeEmbedding}
	}
	return &MockBackend{NameValue: name, Caps: caps, Dims: dims}
}

func (m *MockBackend) Name() string             { return m.NameValue }
func (m *MockBackend) Capabilities() []Capability { return m.Caps }

func (m *MockBackend) EmbedText(_ context.Context, inputs []string) (*Result, error) {
	vectors := make([][]float32, len(inputs))
	for i, in := range inputs {
		vectors[i] = deterministicVector(in, m.Dims)
	}
	return &Result{Embeddings: vectors, Model: m.NameValue, Dimensions: m.Dims}, nil
}

func deterministicVector(s string, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		var b byte
		if len(s) > 0 {
			b = s[i%len(s)]
		}
		v[i] = float32(int(b)+i) / 255.0
	}
	return v
}
