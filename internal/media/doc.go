// Package media mirrors CMS-hosted images into the local media directory.
//
// Every image attachment gets a filename derived from its item heading and
// position. A pass downloads only files that are not already on disk, rewrites
// attachment URLs to the public media path, and keeps the remote URL when a
// download fails. Sweep then deletes every file the pass did not reference.
package media
