package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/isharaux/ussd-gateway/internal/ussderr"
)

func TestKeyFor(t *testing.T) {
	t.Run("nil subscription maps to default key", func(t *testing.T) {
		assert.Equal(t, Key(DefaultKey), KeyFor(nil))
	})

	t.Run("subscription id round-trips", func(t *testing.T) {
		id := 7
		key := KeyFor(&id)
		assert.Equal(t, Key(7), key)
		require.NotNil(t, key.SubscriptionID())
		assert.Equal(t, 7, *key.SubscriptionID())
	})

	t.Run("default key has no subscription id", func(t *testing.T) {
		assert.Nil(t, Key(DefaultKey).SubscriptionID())
	})
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry(zap.NewNop())

	t.Run("registers a new session", func(t *testing.T) {
		err := reg.Register(&Session{Key: 1, Code: "*144#", Active: true})
		require.NoError(t, err)
		require.NotNil(t, reg.Get(1))
		assert.Equal(t, "*144#", reg.Get(1).Code)
	})

	t.Run("occupied key is rejected, not replaced", func(t *testing.T) {
		err := reg.Register(&Session{Key: 1, Code: "*100#", Active: true})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ussderr.ErrSessionActive))
		assert.Equal(t, "*144#", reg.Get(1).Code)
	})

	t.Run("inactive session may be replaced", func(t *testing.T) {
		reg.Update(1, func(s *Session) { s.Active = false })
		err := reg.Register(&Session{Key: 1, Code: "*100#", Active: true})
		require.NoError(t, err)
		assert.Equal(t, "*100#", reg.Get(1).Code)
	})

	t.Run("distinct keys are independent", func(t *testing.T) {
		require.NoError(t, reg.Register(&Session{Key: 2, Code: "*556#", Active: true}))
		assert.Equal(t, "*100#", reg.Get(1).Code)
		assert.Equal(t, "*556#", reg.Get(2).Code)
	})
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	require.NoError(t, reg.Register(&Session{Key: DefaultKey, Code: "*123#", Active: true}))

	reg.Remove(DefaultKey)
	assert.Nil(t, reg.Get(DefaultKey))

	// Removing again is a no-op.
	reg.Remove(DefaultKey)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryStates(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	start := time.Now()

	require.NoError(t, reg.Register(&Session{Key: 3, Code: "*131#", StartTime: start, Active: true, WaitingForInput: true}))
	require.NoError(t, reg.Register(&Session{Key: 4, Code: "*141#", StartTime: start, Active: false}))

	states := reg.States()
	require.Len(t, states, 1)
	assert.True(t, states[0].Active)
	assert.Equal(t, "*131#", states[0].Code)
	assert.True(t, states[0].WaitingForInput)
	require.NotNil(t, states[0].SubscriptionID)
	assert.Equal(t, 3, *states[0].SubscriptionID)
	assert.Equal(t, start.UnixMilli(), states[0].StartTime)
}

func TestRegistryUpdate(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	require.NoError(t, reg.Register(&Session{Key: 5, Code: "*150#", Active: true}))

	ok := reg.Update(5, func(s *Session) { s.WaitingForInput = true })
	assert.True(t, ok)
	assert.True(t, reg.Get(5).WaitingForInput)

	assert.False(t, reg.Update(99, func(s *Session) {}))
}
