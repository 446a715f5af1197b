// Package debtmock provides test doubles and integration helpers for the
// debttable package.
//
// Three levels of fidelity are available:
//
//   - MockClient: expectation-based stubs for asserting on the exact
//     requests an operation produces.
//   - MemoryClient: an in-memory table honoring the debt ledger schema,
//     including partition queries, sort key prefix conditions, the reverse
//     index, and conditional puts.
//   - LocalDynamoDB: helpers for running tests against DynamoDB Local,
//     with table lifecycle management and data seeding.
package debtmock
