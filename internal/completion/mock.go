package completion

import (
	"context"

	"github.com/johnrmarty/chat-prd/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Complete(ctx context.Context, transcript []types.Message, mode string) (string, error) {
	args := m.Called(ctx, transcript, mode)
	return args.String(0), args.Error(1)
}
