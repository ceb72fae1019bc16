// Package logs reads the daemon log file for "folio logs".
//
// Reads are bounded: Last keeps a ring of the trailing lines and ReadFrom
// only returns complete lines, so a follower never prints half of an entry
// that is still being written. A file that shrinks below the saved offset
// is treated as rotated and re-read from the start.
package logs
