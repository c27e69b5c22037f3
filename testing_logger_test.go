package libevents

import (
	"fmt"

	"github.com/stretchr/testify/mock"
)

// mockLogger records log calls. WithField returns the same mock, so expectations set on
// it see every derived logger.
type mockLogger struct {
	mock.Mock
}

func (m *mockLogger) WithField(key string, value any) Logger {
	m.Called(key, value)
	return m
}

func (m *mockLogger) Debug(args ...any) { m.Called("DEBUG", fmt.Sprint(args...)) }

func (m *mockLogger) Debugf(format string, args ...any) {
	m.Called("DEBUG", fmt.Sprintf(format, args...))
}

func (m *mockLogger) Info(args ...any) { m.Called("INFO", fmt.Sprint(args...)) }

func (m *mockLogger) Infof(format string, args ...any) {
	m.Called("INFO", fmt.Sprintf(format, args...))
}

func (m *mockLogger) Warn(args ...any) { m.Called("WARN", fmt.Sprint(args...)) }

func (m *mockLogger) Warnf(format string, args ...any) {
	m.Called("WARN", fmt.Sprintf(format, args...))
}

func (m *mockLogger) Error(args ...any) { m.Called("ERROR", fmt.Sprint(args...)) }

func (m *mockLogger) Errorf(format string, args ...any) {
	m.Called("ERROR", fmt.Sprintf(format, args...))
}
