// Package publicationservice implements the review publication workflow
// inside the editorial-pipeline context.
//
// A review carries a lifecycle status and a separate editorial
// review_status; the consolidated publication-action endpoint is the single
// authority that validates a requested transition against persisted state,
// enforces the actor role matrix, and applies status fields, timestamps,
// the audit row, and the integration event in one transaction. A scheduled
// publisher worker moves due reviews to published. Business rules live in
// application/domain layers with infrastructure isolated behind ports and
// adapters.
package publicationservice
