package portfolio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocker_SerializesPerPortfolio(t *testing.T) {
	locker := NewLocker()

	// Without mutual exclusion these increments would race and lose updates.
	var counters [2]int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		for _, id := range []int64{1, 2} {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				locker.Lock(id)
				counters[id-1]++
				locker.Unlock(id)
			}(id)
		}
	}
	wg.Wait()

	assert.Equal(t, 100, counters[0])
	assert.Equal(t, 100, counters[1])
}
