package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegistryPutGetRemove covers the basic lifecycle.
func TestRegistryPutGetRemove(t *testing.T) {
	reg := NewRegistry()
	s := &Session{Token: "tok", connected: true, lastActivity: time.Now()}
	reg.Put(s)

	got, err := reg.Get("tok")
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, reg.Len())

	removed, ok := reg.Remove("tok")
	require.True(t, ok)
	assert.Same(t, s, removed)
	assert.Equal(t, 0, reg.Len())

	_, err = reg.Get("tok")
	assert.True(t, IsUnavailable(err))

	_, ok = reg.Remove("tok")
	assert.False(t, ok)
}

// TestRegistryForEachWithConcurrentRemove iterates while another
// goroutine deletes entries; neither side may panic or deadlock.
func TestRegistryForEachWithConcurrentRemove(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 100; i++ {
		reg.Put(&Session{Token: fmt.Sprintf("tok-%d", i), connected: true})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			reg.Remove(fmt.Sprintf("tok-%d", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			reg.ForEach(func(s *Session) { _ = s.Token })
		}
	}()
	wg.Wait()
	assert.Equal(t, 0, reg.Len())
}

// TestTouchAdvancesLastActivity ensures operations keep sessions fresh.
func TestTouchAdvancesLastActivity(t *testing.T) {
	s := &Session{Token: "t", connected: true}
	s.touchAt(time.Unix(100, 0))
	require.Equal(t, time.Unix(100, 0), s.LastActivity())
	s.touchAt(time.Unix(200, 0))
	require.Equal(t, time.Unix(200, 0), s.LastActivity())
}
