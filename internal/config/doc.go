// Package config loads the homebus configuration document.
//
// A document is read from TOML, YAML or JSON (picked by file extension),
// decoded into ready-to-build component configurations, and then adjusted
// by HOMEBUS_* environment variables:
//
//	name = "kitchen"
//	debug = true
//
//	[network]
//	polling = 3000
//	wifi = [{ ssid = "home", pwd = "secret" }]
//
//	[[digital-inputs]]
//	topic = "btn"
//	pin = 5
//
// Entries marked `disable = true` are skipped. A malformed entry is
// recorded in Document.Problems and left out; the rest of the document
// still loads. Only problems with the document as a whole (unreadable
// file, syntax error, missing name) fail the load.
//
// Watcher reloads the document when the file changes on disk.
package config
