package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/lobbyhub/internal/testutil"
)

func TestGetReturnsInitialValue(t *testing.T) {
	s := New(42, testutil.NopLogger())
	assert.Equal(t, 42, s.Get())
}

func TestSetReplacesValueAndNotifies(t *testing.T) {
	s := New(0, testutil.NopLogger())

	var seen []int
	s.Subscribe(func(v int) { seen = append(seen, v) })

	s.Set(5)
	s.Set(7)

	assert.Equal(t, 7, s.Get())
	assert.Equal(t, []int{5, 7}, seen)
}

func TestUpdateAppliesFunctionToOldValue(t *testing.T) {
	s := New([]string{"a"}, testutil.NopLogger())

	result := s.Update(func(old []string) []string {
		return append(append([]string{}, old...), "b")
	})

	assert.Equal(t, []string{"a", "b"}, result)
	assert.Equal(t, []string{"a", "b"}, s.Get())
}

func TestListenersRunInRegistrationOrder(t *testing.T) {
	s := New(0, testutil.NopLogger())

	var order []string
	s.Subscribe(func(int) { order = append(order, "first") })
	s.Subscribe(func(int) { order = append(order, "second") })
	s.Subscribe(func(int) { order = append(order, "third") })

	s.Set(1)

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestListenerSeesStoredValue(t *testing.T) {
	s := New(0, testutil.NopLogger())

	var fromGet int
	s.Subscribe(func(int) { fromGet = s.Get() })

	s.Set(9)

	assert.Equal(t, 9, fromGet)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	s := New(0, testutil.NopLogger())

	calls := 0
	id := s.Subscribe(func(int) { calls++ })
	s.Set(1)
	s.Unsubscribe(id)
	s.Set(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.ListenerCount())
}

func TestUnsubscribeUnknownIDIsIgnored(t *testing.T) {
	s := New(0, testutil.NopLogger())
	s.Subscribe(func(int) {})

	s.Unsubscribe(ListenerID(999))

	assert.Equal(t, 1, s.ListenerCount())
}

func TestUnsubscribeKeepsOtherListeners(t *testing.T) {
	s := New(0, testutil.NopLogger())

	var order []string
	s.Subscribe(func(int) { order = append(order, "a") })
	b := s.Subscribe(func(int) { order = append(order, "b") })
	s.Subscribe(func(int) { order = append(order, "c") })

	s.Unsubscribe(b)
	s.Set(1)

	assert.Equal(t, []string{"a", "c"}, order)
}

func TestPanickingListenerDoesNotStopFanOut(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	s := New(0, logger)

	var after []int
	s.Subscribe(func(int) { panic("boom") })
	s.Subscribe(func(v int) { after = append(after, v) })

	require.NotPanics(t, func() { s.Set(3) })

	assert.Equal(t, []int{3}, after)
	assert.Equal(t, 3, s.Get())
	assert.Contains(t, logs.String(), "store listener panicked")
	assert.Contains(t, logs.String(), "boom")
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	s := New(0, testutil.NopLogger())

	var mu sync.Mutex
	var seen []int
	s.Subscribe(func(v int) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(old int) int { return old + 1 })
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, s.Get())
	require.Len(t, seen, 100)
	// Notifications arrive in write order
	for i, v := range seen {
		assert.Equal(t, i+1, v)
	}
}
