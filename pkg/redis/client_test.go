package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewClient_Unreachable(t *testing.T) {
	c, err := NewClient(context.Background(), Opts{Addr: "127.0.0.1:1"}, zaptest.NewLogger(t))

	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
