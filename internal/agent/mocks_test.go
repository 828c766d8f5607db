// File: internal/agent/mocks_test.go
package agent

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/wayfarer/internal/guardrail"
	"github.com/xkilldash9x/wayfarer/internal/llmclient"
)

// MockExecutor is a testify mock of the Executor interface.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Navigate(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

func (m *MockExecutor) Click(ctx context.Context, selector string) error {
	args := m.Called(ctx, selector)
	return args.Error(0)
}

func (m *MockExecutor) Type(ctx context.Context, selector, text string) error {
	args := m.Called(ctx, selector, text)
	return args.Error(0)
}

func (m *MockExecutor) Submit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockExecutor) Scroll(ctx context.Context, direction string, distance int) error {
	args := m.Called(ctx, direction, distance)
	return args.Error(0)
}

func (m *MockExecutor) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExecutor) Extract(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockExecutor) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockExecutor) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockOracle is a testify mock of the llmclient.Client interface.
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockOracle) Close() error {
	args := m.Called()
	return args.Error(0)
}

// passScreener clears everything as safe, passing content through.
type passScreener struct{}

func (passScreener) Scan(_ context.Context, content string) guardrail.ScanResult {
	return guardrail.ScanResult{Level: guardrail.LevelSafe, Content: content}
}
