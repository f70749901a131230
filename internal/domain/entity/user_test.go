package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewChatSession_DefaultState(t *testing.T) {
	s := NewChatSession(1, 10)
	require.Equal(t, StateMainMenu, s.State)
	require.Equal(t, int64(1), s.UserID)
	require.Equal(t, int64(10), s.ChatID)

	s.SetState(StateAwaitingXray)
	require.Equal(t, StateAwaitingXray, s.State)
}
