package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Webictbyleo/capsule"
	"github.com/Webictbyleo/capsule/jsonfile"
	"github.com/Webictbyleo/capsule/sqlite"
)

// Run executes the cache command.
func (c *CacheCmd) Run(deps *Dependencies) error {
	var cache capsule.AssetCache
	var source string

	if c.GlobalAssets != "" {
		path := filepath.Join(c.GlobalAssets, jsonfile.DefaultFilename)
		cache = jsonfile.NewCache(path)
		source = path
	} else {
		cache = sqlite.NewCache(deps.DB)
		source = "capsule database"
	}

	if err := cache.Load(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", capsule.ErrorMessage(err))
		return err
	}

	n, err := cache.Len(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", capsule.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "%d cached asset(s) in %s\n", n, source)

	if !c.Verify {
		return nil
	}
	if c.GlobalAssets == "" {
		err := capsule.Errorf(capsule.EINVALID, "--verify requires --global-assets")
		fmt.Fprintf(deps.Stderr, "error: %s\n", capsule.ErrorMessage(err))
		return err
	}
	return c.verify(deps, cache.(*jsonfile.Cache))
}

// verify checks that every cached local path still exists on disk and
// reports entries whose files are gone.
func (c *CacheCmd) verify(deps *Dependencies, cache *jsonfile.Cache) error {
	entries, err := cache.Entries(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", capsule.ErrorMessage(err))
		return err
	}

	missing := 0
	for _, entry := range entries {
		// Entry paths are relative to a capture directory under the root,
		// e.g. "../global_assets/<file>".
		local := filepath.Join(c.GlobalAssets, strings.TrimPrefix(entry.LocalPath, "../"))
		if _, err := os.Stat(local); err != nil {
			missing++
			fmt.Fprintf(deps.Stdout, "  missing %s -> %s\n", entry.CanonicalURL, entry.LocalPath)
		}
	}

	if missing > 0 {
		return capsule.Errorf(capsule.ENOTFOUND, "%d cache entr(ies) missing their files", missing)
	}
	fmt.Fprintln(deps.Stdout, "all cache entries verified")
	return nil
}
