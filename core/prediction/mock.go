package prediction

import "sync"

// MockEngine returns a configured result and records the inputs it saw.
type MockEngine struct {
	Result Result
	Err    error

	mu    sync.Mutex
	Calls [][2][]float64
}

// Predict returns the configured Result or Err.
func (m *MockEngine) Predict(semesters, cpi []float64) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc := make([]float64, len(semesters))
	copy(sc, semesters)
	cc := make([]float64, len(cpi))
	copy(cc, cpi)
	m.Calls = append(m.Calls, [2][]float64{sc, cc})
	if m.Err != nil {
		return Result{}, m.Err
	}
	return m.Result, nil
}

// CallCount returns the number of Predict invocations.
func (m *MockEngine) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
