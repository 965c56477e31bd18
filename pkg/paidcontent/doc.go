// Package paidcontent implements a payment-gated encrypted content ledger.
//
// Authors publish content that is encrypted and handed to an external
// content-addressed blob store; a durable ledger links each item's stable
// identifier to its encryption parameters, price terms and audit trail.
// Every read of the full content is mediated: the caller must satisfy an
// external payment verification for that specific request before the
// plaintext is reconstructed. Audit entries are informational only and never
// substitute for re-payment.
//
// The package defines the collaborator contracts (BlobStore, Ledger,
// PaymentVerifier, ChallengeSigner) and a Service wiring them together.
// Concrete implementations live in the subpackages storage/, ledger/ and
// payment/.
package paidcontent
