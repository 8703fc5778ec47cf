package sfdeploy

// FingerprintStore maps artifact paths to their last deployed fingerprint.
//
// Thread-Safety: NOT safe for concurrent use. Concurrent runs must be
// serialized with the store's lock file.
type FingerprintStore interface {
	// Lookup returns the record for key, if any.
	Lookup(key string) (FingerprintRecord, bool)

	// HasChanged reports whether content differs from the stored digest.
	// An absent record counts as changed.
	HasChanged(key, content string) bool

	// Commit records content as deployed. Only call after successful execution.
	Commit(key, content string) FingerprintRecord

	// Save persists the full mapping.
	Save() error
}
