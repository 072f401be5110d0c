package app

import (
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

type CloseFunc func() error

func (instance *Instance) AddCloseFunc(fn CloseFunc) {
	instance.AddCloser(&closeWrapper{fn: fn})
}

type closeWrapper struct {
	fn CloseFunc
}

func (w *closeWrapper) Close() error {
	return w.fn()
}

func (instance *Instance) AddCloser(closer io.Closer) {
	instance.closers = append(instance.closers, closer)
}

// Stop is safe to call more than once and from any goroutine.
func (instance *Instance) Stop(failed bool) {
	instance.failed = failed || instance.failed
	instance.stopOnce.Do(func() {
		close(instance.stop)
	})
}

func (instance *Instance) WaitForFinish() {
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		signal.Notify(sigint, syscall.SIGTERM)
		select {
		case <-sigint:
		case <-instance.stop:
		}

		instance.cancel()

		var lock sync.Mutex
		var closeErrs *multierror.Error
		var wg sync.WaitGroup
		wg.Add(len(instance.closers))
		for i := range instance.closers {
			go func(i int) {
				defer wg.Done()
				if err := instance.closers[i].Close(); err != nil {
					lock.Lock()
					closeErrs = multierror.Append(closeErrs, err)
					lock.Unlock()
				}
			}(i)
		}
		wg.Wait()

		if err := closeErrs.ErrorOrNil(); err != nil {
			log.Printf("failed to close cleanly - %s", err)
			instance.failed = true
		}

		if instance.failed {
			os.Exit(1)
		}

		close(instance.done)
	}()

	// Wait until everything is done and finished
	select {
	case <-instance.done:
	}
}
