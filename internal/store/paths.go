// Package store provides flat-file persistence for the review engine's
// collections.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths locates every artifact the review engine reads or writes.
type Paths struct {
	KB          string `yaml:"kb"`
	Clusters    string `yaml:"clusters"`
	QAExport    string `yaml:"qa_export"`
	Corrections string `yaml:"corrections"`
	CallRecords string `yaml:"call_records"`
	StateDir    string `yaml:"state_dir"`
}

// DefaultPaths returns the pipeline's standard layout under root.
func DefaultPaths(root string) Paths {
	return Paths{
		KB:          filepath.Join(root, "knowledge_base", "kb_faq_ru.json"),
		Clusters:    filepath.Join(root, "insights_global", "global_faq_clusters_dedup.json"),
		QAExport:    filepath.Join(root, "nlu_output", "nlu_pairs.jsonl"),
		Corrections: filepath.Join(root, "corrections", "corrections.jsonl"),
		CallRecords: filepath.Join(root, "insights_per_call"),
		StateDir:    LocalStatePath(root),
	}
}

// Resolve makes every relative path absolute against root.
func (p Paths) Resolve(root string) Paths {
	abs := func(path string) string {
		if path == "" || filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(root, path)
	}
	return Paths{
		KB:          abs(p.KB),
		Clusters:    abs(p.Clusters),
		QAExport:    abs(p.QAExport),
		Corrections: abs(p.Corrections),
		CallRecords: abs(p.CallRecords),
		StateDir:    abs(p.StateDir),
	}
}

// IndexPath returns the location of the derived correction index database.
func (p Paths) IndexPath() string {
	return filepath.Join(p.StateDir, "corrections.db")
}

// LocalStatePath returns the path to the local .faqloop directory
// for the given project root.
func LocalStatePath(projectRoot string) string {
	return filepath.Join(projectRoot, ".faqloop")
}

// EnsureDirs creates the parent directories of every artifact.
func (p Paths) EnsureDirs() error {
	dirs := []string{
		filepath.Dir(p.KB),
		filepath.Dir(p.Clusters),
		filepath.Dir(p.QAExport),
		filepath.Dir(p.Corrections),
		p.CallRecords,
		p.StateDir,
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// stateGitignore is the default .gitignore content for .faqloop directories.
const stateGitignore = `# SQLite index (source of truth is corrections.jsonl)
corrections.db
corrections.db-shm
corrections.db-wal
`

// EnsureGitignore creates a .gitignore in the given state directory if one
// does not already exist.
func EnsureGitignore(stateDir string) error {
	gitignorePath := filepath.Join(stateDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		return nil // already exists, respect user customizations
	}
	if err := os.WriteFile(gitignorePath, []byte(stateGitignore), 0600); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	return nil
}
