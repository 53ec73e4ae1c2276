package realtime

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupervisorSingleFlight(t *testing.T) {
	supervisor := NewSupervisor()

	var owners int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if supervisor.Begin() {
				atomic.AddInt32(&owners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&owners))
	assert.True(t, supervisor.Active())
}

func TestSupervisorReleaseAllowsNewOwner(t *testing.T) {
	supervisor := NewSupervisor()

	assert.True(t, supervisor.Begin())
	assert.False(t, supervisor.Begin())

	supervisor.Release()
	assert.False(t, supervisor.Active())
	assert.True(t, supervisor.Begin())
}

func TestSupervisorReleaseIdempotent(t *testing.T) {
	supervisor := NewSupervisor()
	supervisor.Begin()

	supervisor.Release()
	supervisor.Release() // must not panic on double release

	assert.False(t, supervisor.Active())
}

func TestSupervisorDone(t *testing.T) {
	supervisor := NewSupervisor()

	// Never started: already closed
	select {
	case <-supervisor.Done():
	default:
		t.Fatal("Done channel of an idle supervisor should be closed")
	}

	supervisor.Begin()
	done := supervisor.Done()
	select {
	case <-done:
		t.Fatal("Done channel should be open while a session is owned")
	default:
	}

	supervisor.Release()
	select {
	case <-done:
	default:
		t.Fatal("Done channel should close on release")
	}
}
