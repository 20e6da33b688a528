// Package backend defines the document service application code reads and
// writes through, an in-memory implementation, and a binding that mirrors a
// live collection into the state store.
//
// Collections hold documents keyed by string ids. Watch delivers a full
// snapshot of a collection once on subscription and again after every
// change, until the returned function is called or the context ends.
package backend
