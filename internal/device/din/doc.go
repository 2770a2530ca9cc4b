// Package din turns a bouncing digital input into gestures.
//
// Every level change arms a debounce timer. When it expires with the pin
// still at the captured level the input publishes a gesture:
//
//	P  pressed (the pin went to its active level)
//	C  clicked (the pin returned to its idle level)
//	L  long press (still pressed when the long-press timer expires)
//
// A second edge while debouncing cancels everything: the bounce produces no
// gesture. After a long press the release edge is swallowed, so a long
// press publishes P then L and no C.
//
// Edge handlers run in interrupt context and only flip flags and arm
// timers under a short lock. Gestures are published from timer callbacks
// on the run loop.
package din
