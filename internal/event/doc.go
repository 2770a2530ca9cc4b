// Package event provides the homebus event bus.
//
// Components publish on their own topic and subscribe to the topics of
// others. The Router keeps, per topic, a list of subscriptions sorted by
// descending priority (ties keep registration order) and delivers each
// event to them one at a time:
//
//	r := event.NewRouter(event.WithLogger(logger))
//	r.RegisterSubscriber(led, "button", event.PriorityDefault)
//
//	ctx := event.NewContext("button", nil)
//	ctx.Begin("C")
//	r.Deliver(ctx)
//
// # Veto
//
// A subscriber returning false from Pull stops delivery to every
// lower-priority subscriber of that event. Subscribers already reached are
// not rolled back.
//
// # Context and State
//
// A Context is created once per publishing component and refreshed on every
// push. Its State is a blackboard shared by reference: writes made by one
// subscriber are visible to the next one and to later deliveries.
//
// # Re-entrancy
//
// A pull may publish, which nests a delivery. The router refuses a nested
// delivery for a topic that is already in flight, or one that would exceed
// the configured depth (WithMaxDepth), and reports it as ErrDeliveryCycle.
//
// # Panics
//
// A pull that panics is recovered, reported to the PanicHandler and treated
// as if it returned true.
package event
