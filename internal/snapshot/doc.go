// Package snapshot runs synchronization passes and owns the documents they
// produce.
//
// A Generator fetches every collection, mirrors media, writes profileData.json
// and lastUpdate.json atomically, sweeps unreferenced media, and records the
// pass in history, metrics and notifications. Concurrent callers inside one
// process share the pass in flight; separate processes are serialized by a
// lock file in the content directory.
//
// A Store reads the documents back for the HTTP surface and the CLI.
package snapshot
