package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Inference = (*MockModel)(nil)
	_ Inference = InferenceFunc(nil)
)

func TestPrompt_UserText(t *testing.T) {
	assert.Equal(t, "u", Prompt{User: "u"}.UserText())
	assert.Equal(t, "c", Prompt{Context: "c"}.UserText())
	assert.Equal(t, "u\n\nc", Prompt{User: "u", Context: "c"}.UserText())
}

func TestMockModel_Rules(t *testing.T) {
	m := NewMockModel("m").AddResponse("popup", "[]").SetDefault("default")

	out, err := m.Complete(context.Background(), Prompt{User: "a popup appeared"})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	out, err = m.Complete(context.Background(), Prompt{User: "other"})
	require.NoError(t, err)
	assert.Equal(t, "default", out)
	assert.Len(t, m.Prompts(), 2)
	assert.Equal(t, "mock", m.Info().Provider)
}

func TestMockModel_NoResponseConfigured(t *testing.T) {
	_, err := NewMockModel("m").Complete(context.Background(), Prompt{User: "x"})
	assert.Error(t, err)
}

func TestMockModel_ErrorAndDelay(t *testing.T) {
	sentinel := errors.New("down")
	_, err := NewMockModel("m").SetError(sentinel).Complete(context.Background(), Prompt{})
	assert.ErrorIs(t, err, sentinel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = NewMockModel("m").SetDelay(time.Second).SetDefault("late").Complete(ctx, Prompt{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
