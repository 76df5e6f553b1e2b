package main

import (
	"net/http"
	"sync/atomic"
)

// handlerSwapper lets serve replace the panel handler after a config reload
// without restarting the listener.
type handlerSwapper struct {
	handler atomic.Pointer[http.Handler]
}

func newHandlerSwapper(h http.Handler) *handlerSwapper {
	s := &handlerSwapper{}
	s.Swap(h)
	return s
}

func (s *handlerSwapper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.handler.Load()).ServeHTTP(w, r)
}

// Swap installs h for subsequent requests. In-flight requests finish on the
// previous handler.
func (s *handlerSwapper) Swap(h http.Handler) {
	s.handler.Store(&h)
}
