// Package file provides an Extractor which reads data from a directory of files on disk.
// Directories named name=value (hive-style partitions) contribute an entry to every Row
// read beneath them, and may be skipped entirely when a partition filter excludes them.
package file
