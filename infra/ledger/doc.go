// Package ledger is the write and read path to the federation smart
// contract. It signs state-changing calls with the domain's key,
// stamps them from the single per-account nonce owner, and answers
// typed read-only queries.
//
// Queries never touch the nonce and are always re-fetched from the
// chain — nothing mutable is cached locally, so every domain reading
// the same block sees the same values.
package ledger
