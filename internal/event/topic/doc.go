// Package topic provides the Topic type used to name channels on the event bus.
//
// Topics are opaque, process-unique strings. The bus compares them for
// equality only; there is no hierarchy or wildcard matching. A component owns
// exactly one topic for its whole lifetime and may subscribe to any number of
// other topics.
//
//	topic.Topic("btn1")
//	topic.Topic("led.kitchen")
package topic
