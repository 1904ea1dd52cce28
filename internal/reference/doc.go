// Package reference loads the documents a command pulls into its transcript
// with "@path" lines. Text is decoded with BOM sniffing (UTF-8 and UTF-16)
// and must be valid UTF-8 afterwards. A Loader can optionally keep recently
// read documents in an LRU cache keyed by path and invalidated by mtime and
// size.
package reference
