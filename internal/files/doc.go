// Package files provides file system operations and discovery utilities.
//
// Discovery finds demo files for batch exports. Manager wraps common file
// operations relative to a base directory, including WriteFileAtomic which
// publishes content with a write-to-temp-then-rename so concurrent readers
// never observe a partial file.
//
//	manager := files.NewManager(cacheDir, logger)
//	err := manager.WriteFileAtomic("abc/CURRENT", manifest)
package files
