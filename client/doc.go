// Package client is the Go SDK for the pressroom API.
//
// Reads flow through a keyed query cache (client/querycache) so every view
// of an entity lives in a named region. Casting a vote patches all of the
// entity's regions optimistically, snapshots them first, and restores the
// snapshots verbatim if the server rejects the vote; on success the regions
// are marked stale after a short confirm delay so the next read reconciles
// with server truth. Publication workflow actions never patch: they
// invalidate the queue and detail regions and let the next read refetch.
//
// Mutations are sent exactly once with a fresh Idempotency-Key; reads retry
// up to two extra attempts inside the cache fill.
package client
