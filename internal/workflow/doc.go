// Package workflow implements the bounded approval workflow shared by stamp
// issuance, reward redemption and paper-stamp migration.
//
// A request is created with an expiry, the requester polls it until it
// reaches a terminal status, and an approver resolves it from a queue of
// pending requests. Status transitions are decided by the server; this
// package only observes them.
package workflow
