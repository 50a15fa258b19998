// Package executor implements a breadth-first GraphQL executor that resolves
// asynchronous fields in one batch per depth.
//
// # Execution model
//
// Fields are split into two kinds by schema.Field.Async:
//   - Synchronous fields (projections of the parent value) are resolved
//     immediately through Runtime.ResolveSync while the selection set is
//     expanded.
//   - Asynchronous fields (root fields and relationship fields that need I/O)
//     are queued. When a depth has been fully expanded, every queued task is
//     handed to Runtime.BatchResolveAsync in ONE call, and the results are
//     completed, which may queue the tasks of the next depth.
//
// The once-per-depth BatchResolveAsync call is the flush boundary for
// request-scoped batch loaders: a runtime can let resolvers register keys,
// dispatch every loader once, and then read the loaded values. Sibling
// fields at the same depth therefore share one fetch per loader.
//
// # Mutations
//
// Root mutation fields run serially: each root field and its whole subtree
// completes before the next root field starts, so a mutation's own batch
// flushes never mix with the next one's. Once the request context is done,
// the remaining root fields are not started; each is reported through the
// ErrorPresenter with the context error and resolves to null.
//
// # Values
//
// List fields accept any Go slice, so resolvers can return typed slices
// of pointers to entities directly. A nil slice completes as null.
//
// # Errors
//
// Resolver errors become located errors. The message and extensions are
// produced by the configured ErrorPresenter, which lets the host map typed
// domain errors onto codes and mask internal failures. When a Non-Null
// field resolves to null, the null propagates to the enclosing top-level
// field, and queued tasks below it are dropped.
package executor
