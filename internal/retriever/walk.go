package retriever

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/contextlab/codectx/internal/config"
	"github.com/contextlab/codectx/internal/extractor"
)

// collectFiles walks rootDir and returns the files the registry can extract,
// in walk order. Directories whose basename matches an exclude pattern are
// pruned whole; files are dropped on a basename pattern match or a
// .gitignore match when gitignore support is enabled. A non-empty allowExts
// additionally restricts files to those extensions.
func collectFiles(rootDir string, reg *extractor.Registry, cfg config.IndexingConfig, allowExts []string, log *slog.Logger) ([]string, error) {
	var gi *ignore.GitIgnore
	if cfg.UseGitignore {
		giPath := filepath.Join(rootDir, ".gitignore")
		if _, err := os.Stat(giPath); err == nil {
			compiled, err := ignore.CompileIgnoreFile(giPath)
			if err != nil {
				log.Warn("unreadable .gitignore, ignoring it", "path", giPath, "error", err)
			} else {
				gi = compiled
			}
		}
	}

	var files []string
	err := filepath.WalkDir(rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("skipping unreadable entry", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		base := d.Name()
		if d.IsDir() {
			if p != rootDir && matchesAny(base, cfg.ExcludeDirs) {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAny(base, cfg.ExcludeFiles) {
			return nil
		}
		if gi != nil {
			rel, relErr := filepath.Rel(rootDir, p)
			if relErr == nil && gi.MatchesPath(rel) {
				return nil
			}
		}
		if len(allowExts) > 0 && !hasExtension(p, allowExts) {
			return nil
		}
		if !reg.Supports(p) {
			return nil
		}

		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// hasExtension reports whether p's extension is in exts, case-insensitive.
func hasExtension(p string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// matchesAny reports whether name matches any glob pattern. A plain string
// with no metacharacters matches exactly.
func matchesAny(name string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, err := path.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}
