// Package framework contains the low-level test run engine that is independent
// of any particular lab or board.
//
// The general model is:
//
// 1. A test run executes a tree of named testcases, each associated with a
// Context that accumulates success/failure results, similar to Go's *testing.T
// but outside of the Go test runner.
//
// 2. Testcases drive machines (lab hosts, boards, local shells) through their
// exec contracts. Every command execution and board power transition is
// reported as a structured log event with a path, so that external sinks can
// render or persist the run however they like.
//
// 3. The domain-specific code that knows what is being tested (the tasks and
// selftests packages) provides the testcase bodies; this package only knows
// about run structure, filtering, results, and event plumbing.
package framework
