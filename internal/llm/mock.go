package llm

import "context"

// MockBackend returns a fixed response regardless of prompt, or an
// error if Err is set. Useful for exercising QNTM generation and
// consolidation classification without a network dependency.
type MockBackend struct {
	NameValue string
	Caps      []Capability
	Response  []byte
	Err       error
	Calls     int
}

func NewMockBackend(name string, response []byte, caps ...Capability) *MockBackend {
	if len(caps) == 0 {
		caps = []Capability{CapabilityJSONCompletion, CapabilityQNTMGeneration, CapabilityTextCompletion}
	}
	return &MockBackend{NameValue: name, Caps: caps, Response: response}
}

func (m *MockBackend) Name() string              { return m.NameValue }
func (m *MockBackend) Capabilities() []Capability { return m.Caps }

func (m *MockBackend) CompleteJSON(_ context.Context, _ string) ([]byte, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}
