// Package core provides the import reconciliation engine for personal-finance
// files.
//
// This package holds all domain logic independent of any transport or
// storage. It is used by the HTTP server, the importctl CLI and tests without
// modification; persistence is reached only through [SessionStore] and
// [EntityStore].
//
// # Pipeline
//
// A file moves through an [ImportSession] in five steps:
//
//  1. [Service.Upload] parses CSV or XLSX into header-keyed rows ([ParseFile])
//  2. [Service.Analyze] classifies the file as transactions, accounts or
//     categories and proposes a column mapping ([TypeClassifier])
//  3. [Service.Preview] and [Service.Validate] let the user inspect a mapping
//     without persisting anything ([MappingValidator])
//  4. [Service.ConfirmMapping] stores the user's mapping
//  5. [Service.Execute] resolves or creates referenced entities row by row and
//     writes the records ([Executor]), then folds the outcome into the session
//     ([Aggregator])
//
// # Session Lifecycle
//
//	pending -> analyzing -> ready -> importing -> completed
//	    \           \          \           \
//	     +-----------+----------+-----------+--> failed
//
// Operations called in the wrong status return [*InvalidStateError] and leave
// the session unchanged.
//
// # Schema Registry
//
// The three target schemas are registered at init time using [Register]. Each
// [Schema] lists its fields, their value kinds and whether they are required.
//
// # Error Handling
//
// Row-scoped failures ([*ValidationError], [*ResolutionError],
// [*DuplicateError]) are recorded per row and never abort a run. Any other
// entity store failure aborts with [*SystemError]; rows already written stay
// written.
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE007: File errors (size, format, empty)
//   - VAL001-VAL010: Validation errors (formats, mappings, options)
//   - IMP001-IMP006: Import lifecycle errors (state, concurrency, locks)
//   - DB001-DB008: Entity store errors (duplicates, connections)
package core
