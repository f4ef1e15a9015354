package timedelta

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeDelta_FirstSampleStoredAsIs(t *testing.T) {
	var td TimeDelta
	td.Update(42)
	assert.EqualValues(t, 42, td.Value())
}

func TestTimeDelta_SubsequentSamplesAverage(t *testing.T) {
	var td TimeDelta
	td.Update(10)
	td.Update(20)
	assert.EqualValues(t, 15, td.Value())
	td.Update(5)
	assert.EqualValues(t, 10, td.Value())
}

func TestTimeDelta_ZeroValueReady(t *testing.T) {
	var td TimeDelta
	assert.EqualValues(t, 0, td.Value())
}

func TestTimeDelta_ConcurrentUpdatesDoNotRace(t *testing.T) {
	var td TimeDelta
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			td.Update(int64(n))
		}(i)
	}
	wg.Wait()
}
