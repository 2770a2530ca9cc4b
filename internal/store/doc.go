// Package store persists the shared state blackboard between runs.
//
// Two backends implement Store: a JSON document file, read with gjson and
// edited in place with sjson, and a SQLite key/value table. Values are
// kept as JSON in both, so anything a rule can put on the blackboard
// survives a restart (numbers come back as float64).
package store
