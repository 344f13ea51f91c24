// Package pool provides a bounded, blocking pool of expensive resources
// (typically database connections) with validate-on-checkout and
// validate-on-release replacement, plus a transaction runner that brackets a
// unit of work with begin/commit/rollback and always returns the resource.
package pool
