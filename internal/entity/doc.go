// Package entity drives live records through their lifecycle.
//
// A Type is defined once from a manifest, a property registry and handler
// registrations. Records of that type are created per input: the input's
// name is resolved to a handler, origin context is assigned, before-all
// handlers run, then the handler itself. Save turns the record's change set
// into one upsert, resynchronizes the record from the stored row and
// queues a change notification.
//
// # States
//
//	Unbound ──HandleEvent/HandleCall──▶ Dispatching ──Save──▶ Saved
//	                                        │
//	                                        └──halt / nothing to write──▶ Skipped
//
// Records are not safe for concurrent use. A batch processes its inputs on
// one goroutine, and records created while handling an input share that
// input's queues.
package entity
