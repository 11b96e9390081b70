// Package storage resolves named storage roots and serves read-only
// inspection endpoints over them.
//
// A Manager maps the closed set of categories (output, intermediate,
// knowledge) to directories on disk. LocalManager persists that mapping in a
// JSON config file and creates sensible defaults on first use, so a fresh
// process can serve files immediately. The Provider mounts the HTTP surface:
// reconfiguring the mapping, browsing a directory tree and reading single
// files, with path traversal outside the configured roots rejected.
package storage
