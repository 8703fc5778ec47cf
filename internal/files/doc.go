// Package files groups the file-facing sub-packages:
//   - filesystem: read-only filesystem abstraction (OS and in-memory)
//   - scanner: artifact discovery within configured folders and artifact loading
package files
