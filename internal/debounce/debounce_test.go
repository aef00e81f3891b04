package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, v)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestDebouncer_TrailingUsesLastArgument(t *testing.T) {
	rec := &recorder{}
	d := New(30*time.Millisecond, rec.record)

	d.Call("a")
	d.Call("b")
	d.Call("c")

	assert.Empty(t, rec.snapshot(), "nothing should fire before the wait elapses")
	assert.True(t, d.Pending())

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"c"}, rec.snapshot())
	assert.False(t, d.Pending())
}

func TestDebouncer_CallsInsideWindowReschedule(t *testing.T) {
	rec := &recorder{}
	d := New(60*time.Millisecond, rec.record)

	d.Call("a")
	time.Sleep(30 * time.Millisecond)
	d.Call("b")
	time.Sleep(40 * time.Millisecond)

	// 70ms since the first call but only 40ms since the last one
	assert.Empty(t, rec.snapshot())

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"b"}, rec.snapshot())
}

func TestDebouncer_SeparateWindowsFireSeparately(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.record)

	d.Call("first")
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	d.Call("second")
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"first", "second"}, rec.snapshot())
}

func TestDebouncer_Leading(t *testing.T) {
	rec := &recorder{}
	d := New(40*time.Millisecond, rec.record, WithLeading())

	d.Call("a")
	assert.Equal(t, []string{"a"}, rec.snapshot(), "leading call fires synchronously")

	d.Call("b")
	d.Call("c")

	// The window closes without a trailing invocation
	require.Eventually(t, func() bool {
		return !d.Pending()
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, rec.snapshot())

	d.Call("d")
	assert.Equal(t, []string{"a", "d"}, rec.snapshot())
}

func TestDebouncer_Stop(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.record)

	d.Call("a")
	d.Stop()
	assert.False(t, d.Pending())

	d.Call("b")
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, rec.snapshot())
}

func TestDebouncer_ZeroArgument(t *testing.T) {
	var mu sync.Mutex
	count := 0
	d := New(10*time.Millisecond, func(struct{}) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		d.Call(struct{}{})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, 5*time.Millisecond)
}
