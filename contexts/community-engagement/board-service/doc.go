// Package boardservice owns the votable content catalogs inside the
// community-engagement context.
//
// The module persists suggestions, community posts, and polls, announces
// each creation through outbox-relayed events so the voting service can
// project the new entity, and serves the list, paginated, and detail read
// models joined with per-caller vote state. Business rules live in
// application/domain layers with infrastructure isolated behind ports and
// adapters.
package boardservice
