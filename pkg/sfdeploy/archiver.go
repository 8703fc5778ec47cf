package sfdeploy

// Archiver keeps timestamped snapshots of previous artifact versions.
type Archiver interface {
	// Archive writes a new, uniquely named snapshot of previous.
	// previous must be non-empty; existing entries are never overwritten.
	Archive(key, previous string) (ArchiveEntry, error)

	// Sweep removes entries older than retentionDays and returns how many
	// were removed. A missing archive location counts as zero entries.
	Sweep(retentionDays int) (int, error)
}
