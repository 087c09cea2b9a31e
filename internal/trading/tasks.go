package trading

import "sync"

// taskGroup tracks the deferred audit tasks spawned by the gateway so
// shutdown can await them. A dropped audit record would leave a trade with no
// surrounding-feed evidence.
type taskGroup struct {
	wg sync.WaitGroup
}

func (g *taskGroup) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
}

func (g *taskGroup) Wait() {
	g.wg.Wait()
}
