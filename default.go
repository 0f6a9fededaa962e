package authsession

import (
	"sync"
	"sync/atomic"
)

var (
	defaultManager atomic.Pointer[SessionManager]
	defaultOnce    sync.Once
	defaultErr     error

	// returned by Default until InitDefault installs a manager
	uninitialized = &SessionManager{}
)

// InitDefault installs the process-wide SessionManager built by newManager.
// newManager runs at most once per process; later calls return the
// manager (and error) from that first run.
//
// Libraries should accept a *SessionManager explicitly. The process-wide
// handle exists for application entry points that need one shared session.
func InitDefault(newManager func() (*SessionManager, error)) (*SessionManager, error) {
	defaultOnce.Do(func() {
		m, err := newManager()
		if err == nil && m == nil {
			err = ErrUninitializedClient
		}
		if err != nil {
			defaultErr = err
			return
		}
		defaultManager.Store(m)
	})
	if m := defaultManager.Load(); m != nil {
		return m, nil
	}
	return nil, defaultErr
}

// Default returns the process-wide SessionManager. Before InitDefault has
// succeeded it returns an uninitialized manager whose provider-backed
// operations fail with ErrUninitializedClient.
func Default() *SessionManager {
	if m := defaultManager.Load(); m != nil {
		return m
	}
	return uninitialized
}
