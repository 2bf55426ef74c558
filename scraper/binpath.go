package scraper

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/use-agent/regionscope/config"
)

// PathResolver finds a browser executable. It reports false when it has no
// opinion, letting the next resolver in a chain try.
type PathResolver interface {
	Resolve() (string, bool)
}

// PathResolverFunc adapts a function to PathResolver.
type PathResolverFunc func() (string, bool)

func (f PathResolverFunc) Resolve() (string, bool) { return f() }

// ResolveChain tries each resolver in order; the first hit wins.
type ResolveChain []PathResolver

func (c ResolveChain) Resolve() (string, bool) {
	for _, r := range c {
		if p, ok := r.Resolve(); ok {
			return p, true
		}
	}
	return "", false
}

// StaticPath resolves to p when it is non-empty.
func StaticPath(p string) PathResolver {
	return PathResolverFunc(func() (string, bool) {
		return p, p != ""
	})
}

// EnvPath resolves to the first non-empty variable among keys.
func EnvPath(getenv func(string) string, keys ...string) PathResolver {
	return PathResolverFunc(func() (string, bool) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				return v, true
			}
		}
		return "", false
	})
}

// installedChrome is where a Puppeteer-style cache keeps the binary inside
// each version directory.
const installedChrome = "chrome-linux64/chrome"

// CacheDirPath scans fsys, an install cache laid out as
// <version>/chrome-linux64/chrome, and resolves to the first version that
// has a binary. root is the directory fsys was opened on.
func CacheDirPath(fsys fs.FS, root string) PathResolver {
	return PathResolverFunc(func() (string, bool) {
		if fsys == nil {
			return "", false
		}
		entries, err := fs.ReadDir(fsys, ".")
		if err != nil {
			return "", false
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			candidate := path.Join(e.Name(), installedChrome)
			info, err := fs.Stat(fsys, candidate)
			if err != nil || info.IsDir() {
				continue
			}
			return filepath.Join(root, filepath.FromSlash(candidate)), true
		}
		return "", false
	})
}

// SystemPath asks rod for a browser already installed on the host.
func SystemPath() PathResolver {
	return PathResolverFunc(launcher.LookPath)
}

// DefaultResolver is the production chain: explicit config, environment,
// install cache, system lookup.
func DefaultResolver(cfg config.BrowserConfig) PathResolver {
	return ResolveChain{
		StaticPath(cfg.BrowserBin),
		EnvPath(os.Getenv, "PUPPETEER_EXECUTABLE_PATH", "CHROME_BIN"),
		CacheDirPath(os.DirFS(cfg.CacheDir), cfg.CacheDir),
		SystemPath(),
	}
}
