// The gateway serves two JSON endpoints in front of a shared volume.
//
// POST /store-file accepts {"file": "a/b.txt", "data": "..."} and writes data
// to the named file under the storage root, creating parent directories as
// needed. POST /calculate accepts {"file": "a/b.txt", "product": ...}, checks
// the file was stored, and forwards both fields to the calculation service,
// relaying its JSON response as is.
//
// Failures never surface as HTTP errors, except the catch-all 500: the body is
// always a JSON object, and the presence of an "error" key tells failure
// apart from success. (The handlers live in this module's gateway package.)
//
// Configuration comes from an optional file (see -config), overridden by
// GATEWAY_* environment variables.
package main // import "github.com/Spidey0819/Container-1/cmd/gateway"
