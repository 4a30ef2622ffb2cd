// Package batch runs an ordered list of inputs through a set of entity
// types.
//
// A batch is processed by one goroutine, strictly in input order. Every
// input gets fresh records of each type whose handlers resolve it; the
// records share one set of queues for the whole batch, and the events and
// contract registrations each input produced are sliced out afterwards.
//
// Processing stops at the first failing input. The returned *Error names
// its index, and the Result still holds what inputs before it produced:
// their rows are already written, so callers can publish those side
// effects and resume from Index.
package batch
