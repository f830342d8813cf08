// Package manifest turns requirement groups into requirements files.
//
// A [Collection] holds the requirements of one file. [Collection.Resolve]
// merges them into one entry per package, applying pins and, in deep mode,
// pulling in the runtime requirements of every entry. [Collection.Write]
// renders the result, choosing per requirement between its declared specs,
// its installed version and its latest version, and replaces the file in one
// rename.
//
// [Groups] writes a whole [parcyl:requirements] section: one "<group>.txt"
// per group plus a consolidated requirements.txt for install and extras.
//
// # Output
//
// Lines are sorted by package key. In deep mode the runtime requirements of
// a package precede it and carry the packages that required them:
//
//	click>=7.0                               # Required by Flask
//	Flask==2.0.1
//
// # Metadata lookups
//
// [Prefetch] fetches metadata through a bounded worker pool before anything
// is rendered, so rendering never waits on the network. The pool has a
// deadline proportional to the number of lookups; exceeding it aborts the
// write.
package manifest
