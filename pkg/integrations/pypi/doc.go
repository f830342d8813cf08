// Package pypi provides an HTTP client for the Python Package Index JSON API.
//
// # Usage
//
//	client := pypi.NewClient(c, 24*time.Hour)  // c is a cache.Cache, may be nil
//
//	pkg, err := client.FetchPackage(ctx, "fastapi", false)  // false = use cache
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(pkg.Name, pkg.Releases)
//
//	rel, err := client.FetchRelease(ctx, "fastapi", "0.110.0", false)
//	fmt.Println(rel.RequiresDist)
//
// # Releases
//
// [PackageInfo.Releases] contains only versions that can still be installed:
// a release whose files are all yanked is left out, as is a release that has
// no files at all.
//
// # Caching
//
// Responses go through the [cache.Cache] given to [NewClient] under the
// "pypi:" namespace. Pass refresh=true to bypass the cache.
//
// [cache.Cache]: github.com/matzehuels/parcyl/pkg/cache.Cache
package pypi
