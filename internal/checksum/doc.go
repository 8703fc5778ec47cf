// Package checksum fingerprints SQL artifact content.
//
// Two digests are available:
//
//   - Raw: SHA-256 of the exact file content (every byte counts)
//   - Normalized: SHA-256 after removing comments, lower-casing code outside
//     literals and collapsing whitespace, so reformatting a script does not
//     trigger a redeploy
//
// The lexer understands the Snowflake surface that matters for this:
// -- and // line comments, /* */ block comments, single-quoted strings with
// backslash and doubled-quote escapes, double-quoted identifiers and
// $$ ... $$ bodies (stored procedures, JavaScript UDFs). Literal text and
// quoted identifiers are preserved exactly.
//
// # Thread Safety
//
// SHA256 is safe for concurrent use by multiple goroutines.
package checksum
