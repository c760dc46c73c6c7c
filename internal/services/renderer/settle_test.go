package renderer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/folio/internal/common"
)

func TestPollUntil_ReadyOnThirdPoll(t *testing.T) {
	calls := 0
	ready, err := pollUntil(context.Background(), time.Millisecond, 5, func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})

	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, 3, calls)
}

func TestPollUntil_BudgetExhausted(t *testing.T) {
	calls := 0
	ready, err := pollUntil(context.Background(), time.Millisecond, 4, func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	})

	require.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, 4, calls)
}

func TestPollUntil_CheckError(t *testing.T) {
	boom := errors.New("evaluate failed")
	_, err := pollUntil(context.Background(), time.Millisecond, 4, func(ctx context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPollUntil_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := pollUntil(ctx, time.Hour, 10, func(ctx context.Context) (bool, error) {
		calls++
		cancel()
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestFixedSettler(t *testing.T) {
	s := &fixedSettler{delay: 10 * time.Millisecond}

	start := time.Now()
	ready, err := s.Settle(context.Background())
	require.NoError(t, err)
	assert.True(t, ready)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&fixedSettler{delay: time.Hour}).Settle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSettler(t *testing.T) {
	config := common.NewDefaultConfig().Render

	s, err := NewSettler(config)
	require.NoError(t, err)
	assert.Equal(t, common.SettleFixed, s.Name())
	assert.Equal(t, 3*time.Second, s.(*fixedSettler).delay)

	config.SettleMode = common.SettleSelector
	_, err = NewSettler(config)
	assert.Error(t, err, "selector mode needs a selector")

	config.ReadySelector = "article .body"
	s, err = NewSettler(config)
	require.NoError(t, err)
	assert.Equal(t, common.SettleSelector, s.Name())
	assert.Equal(t, 40, s.(*pollSettler).maxPolls)

	config.SettleMode = "guess"
	_, err = NewSettler(config)
	assert.Error(t, err)
}

func TestSelectorProbe(t *testing.T) {
	assert.Equal(t, `document.querySelector("div[data-x=\"1\"]") !== null`, selectorProbe(`div[data-x="1"]`))
}
