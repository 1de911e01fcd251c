package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	signal FrameSignal
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetSignal sets the signal that will be returned by Detect.
func (m *MockDetector) SetSignal(sig FrameSignal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signal = sig
}

// SetHands replaces only the hand sub-signal.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signal.Hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured signal or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (FrameSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return FrameSignal{}, m.err
	}
	sig := m.signal
	sig.Hands = append([]HandLandmarks(nil), m.signal.Hands...)
	return sig, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
