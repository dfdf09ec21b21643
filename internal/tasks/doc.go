// Package tasks runs long library operations with progress reporting.
//
// [BulkExport] writes a set of playlists to disk in one of the formatter
// formats. Playlists are fetched through a rate limiter and written by a
// small worker pool; a manifest describing every export is written last.
//
// Progress is sent over a [ProgressUpdate] channel without blocking, so a
// slow or absent reader never stalls the export.
package tasks
