// Package dispatch invokes subscriber pulls on behalf of the router.
//
// Every pull runs synchronously in the caller's goroutine, which is the run
// loop. The dispatcher recovers from panics so that one misbehaving component
// cannot take the loop down, and reports them through a PanicHandler.
//
// A pull that panics is treated as a pass-through: the Result reports
// Next=true so delivery continues to lower-priority subscribers, the same
// fail-open policy the rule evaluator applies.
//
// # Usage
//
//	dispatcher := dispatch.NewSyncDispatcher(
//	    dispatch.WithPanicHandler(func(v any, stack []byte) {
//	        logger.Error("pull panicked", "panic", v)
//	    }),
//	)
//	result := dispatcher.Dispatch(func() bool { return sub.Pull(ctx) })
//	if !result.Next {
//	    // vetoed
//	}
package dispatch
