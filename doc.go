// Package crumbs extracts authentication cookies from locally installed
// browsers (Chrome-family and Firefox) so tooling can reuse an existing
// browser session against a web service.
//
// Readers copy the browser's cookie store to a private temp file before
// opening it, so a running browser is never disturbed, and decrypt values
// with the browser's own OS-held key material. This is intended for local
// tooling (CLI helpers, dev scripts, test harnesses): it reads local browser
// state, may trigger keychain/keyring prompts, and should not be used in
// server contexts. It never writes cookies and never talks to the network.
package crumbs
