package main

import (
	"net/http"
	"sync/atomic"
)

// handlerSwapper serves through whichever handler was stored last, so a
// settings reload can turn the panel on or off without a restart.
type handlerSwapper struct {
	current atomic.Pointer[http.Handler]
}

func newHandlerSwapper(h http.Handler) *handlerSwapper {
	s := &handlerSwapper{}
	s.Swap(h)
	return s
}

func (s *handlerSwapper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.current.Load()).ServeHTTP(w, r)
}

// Swap replaces the underlying handler; in-flight requests finish on the old one.
func (s *handlerSwapper) Swap(h http.Handler) {
	s.current.Store(&h)
}
