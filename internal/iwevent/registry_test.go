package iwevent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_PrepopulatedEmpty(t *testing.T) {
	r := NewRegistry()

	for _, kind := range Kinds() {
		assert.Empty(t, r.CallbacksFor(kind))
		assert.Equal(t, 0, r.Len(kind))
	}
}

func TestRegistry_RegisterPreservesOrder(t *testing.T) {
	r := NewRegistry()

	var order []int
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Register(AssociationNew, func() { order = append(order, i) }))
	}

	for _, cb := range r.CallbacksFor(AssociationNew) {
		cb()
	}
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Empty(t, r.CallbacksFor(AssociationLost))
}

func TestRegistry_DuplicatesAllowed(t *testing.T) {
	r := NewRegistry()

	calls := 0
	cb := func() { calls++ }
	require.NoError(t, r.Register(AssociationLost, cb))
	require.NoError(t, r.Register(AssociationLost, cb))

	for _, c := range r.CallbacksFor(AssociationLost) {
		c()
	}
	assert.Equal(t, 2, calls)
}

func TestRegistry_UnknownKind(t *testing.T) {
	r := NewRegistry()

	err := r.Register(EventKind("SCAN_COMPLETE"), func() {})
	require.ErrorIs(t, err, ErrUnsupportedEvent)
	assert.Contains(t, err.Error(), "SCAN_COMPLETE")

	for _, kind := range Kinds() {
		assert.Equal(t, 0, r.Len(kind))
	}
	assert.Empty(t, r.CallbacksFor(EventKind("SCAN_COMPLETE")))
}

func TestRegistry_NilCallbackIgnored(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(AssociationNew, nil))
	assert.Equal(t, 0, r.Len(AssociationNew))
}

func TestRegistry_CallbacksForReturnsCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(AssociationNew, func() {}))

	cbs := r.CallbacksFor(AssociationNew)
	require.NoError(t, r.Register(AssociationNew, func() {}))

	assert.Len(t, cbs, 1)
	assert.Len(t, r.CallbacksFor(AssociationNew), 2)
}

func TestRegistry_ConcurrentRegisterAndRead(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = r.Register(AssociationNew, func() {})
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = r.CallbacksFor(AssociationNew)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 500, r.Len(AssociationNew))
}
