// Package votingservice implements vote casting inside the
// community-engagement context.
//
// The module owns the per-user vote rows and the per-entity counter
// summaries for suggestions, community posts, and polls. It verifies vote
// targets against board-published projections, keeps row and counter
// mutations atomic, and produces vote.cast integration events through an
// outbox-backed relay. Business rules live in application/domain layers with
// infrastructure isolated behind ports and adapters.
package votingservice
