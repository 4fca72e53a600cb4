// Package store persists the topology document.
//
// A File store reads and writes the document at the platform document path.
// Every write first copies the previous document into the backup directory
// under a UTC timestamped name, then replaces the document atomically
// (temp file, fsync, rename). Old backups beyond the configured limit are
// pruned, oldest first.
//
//	site.xml
//	backups/
//	  site-20261019T101500.000Z.xml
//	  site-20261019T113012.250Z.xml
//
// A missing document is reported as an error matching fs.ErrNotExist so the
// caller can generate and save a stub.
package store
