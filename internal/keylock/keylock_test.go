package keylock_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/supiri/internal/keylock"
)

func TestMap_SerializesSameKey(t *testing.T) {
	locks := keylock.New[int64]()

	const workers = 50

	var (
		wg      sync.WaitGroup
		counter int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			unlock := locks.Lock(7)
			defer unlock()

			// Read and write in two steps so an unserialized run loses updates.
			v := counter
			counter = v + 1
		}()
	}

	wg.Wait()

	assert.Equal(t, workers, counter)
	assert.Zero(t, locks.Len(), "released keys are forgotten")
}

func TestMap_IndependentKeys(t *testing.T) {
	locks := keylock.New[string]()

	unlockA := locks.Lock("a")
	defer unlockA()

	done := make(chan struct{})

	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()

	<-done
	assert.Equal(t, 1, locks.Len())
}
