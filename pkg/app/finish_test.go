package app

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopThenWaitForFinishRunsClosers(t *testing.T) {
	instance := NewInstance()

	var closed atomic.Int32
	instance.AddCloseFunc(func() error {
		closed.Add(1)
		return nil
	})

	instance.Stop(false)

	finished := make(chan struct{})
	go func() {
		instance.WaitForFinish()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForFinish did not return after Stop")
	}
	assert.Equal(t, int32(1), closed.Load())
}

func TestStopIsIdempotent(t *testing.T) {
	instance := NewInstance()

	require.NotPanics(t, func() {
		instance.Stop(false)
		instance.Stop(false)
	})

	select {
	case <-instance.Context().Done():
		t.Fatal("context cancelled before WaitForFinish")
	default:
	}
}
