package suppressor

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newWithClock(ttl time.Duration) (*Suppressor, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := New(ttl)
	s.now = clock.Now
	return s, clock
}

func TestConsumeOnce(t *testing.T) {
	s, _ := newWithClock(0)
	assert.Equal(t, DefaultTTL, s.ttl)

	s.Add("1")
	assert.True(t, s.Consume("1"))
	assert.False(t, s.Consume("1"))
	assert.False(t, s.Consume("2"))
}

func TestExpiry(t *testing.T) {
	s, clock := newWithClock(7 * time.Second)
	s.Add("1")
	s.Add("2")

	clock.Advance(6 * time.Second)
	assert.True(t, s.Consume("1"))

	clock.Advance(2 * time.Second)
	assert.False(t, s.Consume("2"))
	assert.Equal(t, 0, s.Len())
}

func TestSweepOnAdd(t *testing.T) {
	s, clock := newWithClock(time.Second)
	s.Add("old")
	clock.Advance(2 * time.Second)
	s.Add("new")
	assert.Equal(t, 1, s.Len())
}

func TestConcurrentUse(t *testing.T) {
	s := New(time.Minute)
	var wg sync.WaitGroup
	consumed := make([]bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := strconv.Itoa(i)
			s.Add(id)
			consumed[i] = s.Consume(id)
		}(i)
	}
	wg.Wait()
	for i, ok := range consumed {
		assert.True(t, ok, "id %d", i)
	}
	assert.Equal(t, 0, s.Len())
}
