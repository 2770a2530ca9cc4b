// Package component provides the base every homebus device builds on.
//
// A Component is both a publisher and a subscriber. It publishes on its own
// topic with Push and receives other topics through Pull. Optional Lua
// rules decide what happens: the component's own rule runs before each push
// and may suppress it, and each subscription can carry a rule that runs on
// every delivered event and may veto it.
//
// Every push prints a status line to the console unless the component is
// muted or a rule cleared emit:
//
//	#button=[C]
//
// Devices expose operations through an explicit action table. Rules reach
// them as action.<name>() and the runtime host through Invoke.
package component
