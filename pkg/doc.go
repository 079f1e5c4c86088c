// Package dirchecker builds content-addressable integrity indexes of directory trees
// and verifies them against the filesystem.
//
// # Core API
//
// DirectoryChecker implements the Checker interface for the local filesystem:
//
//	checker, err := dirchecker.NewDirectoryChecker(dirchecker.DefaultOptions())
//	idx, err := checker.CreateIndex(ctx, "/path/to/dir")
//	fmt.Printf("index has: %d files\n", idx.Len())
//
// Verify the tree later, with the traversal policy stored in the index:
//
//	diff, err := checker.Verify(ctx, idx, "/path/to/dir")
//	if !diff.Valid() {
//		fmt.Printf("Found %d changes\n", diff.TotalChanges())
//	}
//
// # Persistence
//
// WriteIndexFile and ReadIndexFile store an index as sorted lines of
// relativePath, hex digest, size and mtime separated by tabs, preceded by
// "#" metadata lines carrying the policy.
//
// # Configuration
//
// LoadConfig reads an INI file whose Options feed NewDirectoryChecker. Debug
// output is controlled with SetDebugFlags("scan,hash,verify") and SetVerboseLevel.
package dirchecker
