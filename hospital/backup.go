package hospital

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// DefaultBackupKeep is how many snapshots are retained when no limit is configured.
const DefaultBackupKeep = 7

const backupSuffix = "_backup.json"

// Backup writes JSON snapshots of the record store and prunes old ones.
type Backup struct {
	db     *Database
	dir    string
	keep   int
	logger *zap.Logger
	now    func() time.Time
}

func NewBackup(db *Database, dir string, keep int) *Backup {
	if keep <= 0 {
		keep = DefaultBackupKeep
	}
	return &Backup{db: db, dir: dir, keep: keep, logger: db.logger, now: time.Now}
}

// Create dumps every table to <dir>/<timestamp>_backup.json and applies retention.
// It returns the path of the new snapshot.
func (b *Backup) Create() (string, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	data := make(map[string][]map[string]any, len(Tables))
	for _, t := range Tables {
		rows, err := b.db.dumpTable(t)
		if err != nil {
			return "", fmt.Errorf("dump %s: %w", t, err)
		}
		data[t] = rows
	}

	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}
	path, err := b.writeNew(b.now().Format("2006-01-02_150405"), buf)
	if err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	b.logger.Info("backup created", zap.String("path", path), zap.Int("bytes", len(buf)))

	if _, err := b.Cleanup(); err != nil {
		return path, err
	}
	return path, nil
}

// writeNew writes buf to a snapshot file that did not exist before. Snapshots taken
// within the same second get a numeric suffix.
func (b *Backup) writeNew(stamp string, buf []byte) (string, error) {
	for n := 1; ; n++ {
		name := stamp
		if n > 1 {
			name = fmt.Sprintf("%s-%d", stamp, n)
		}
		path := filepath.Join(b.dir, name+backupSuffix)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(buf); err != nil {
			f.Close()
			return "", err
		}
		return path, f.Close()
	}
}

// List returns snapshot paths, most recently modified first.
func (b *Backup) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(b.dir, "*"+backupSuffix))
	if err != nil {
		return nil, err
	}

	type entry struct {
		path string
		mod  time.Time
	}
	entries := make([]entry, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			continue
		}
		entries = append(entries, entry{m, fi.ModTime()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].mod.Equal(entries[j].mod) {
			return entries[i].path > entries[j].path
		}
		return entries[i].mod.After(entries[j].mod)
	})

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.path
	}
	return paths, nil
}

// Cleanup deletes every snapshot beyond the newest keep and returns the removed paths.
func (b *Backup) Cleanup() ([]string, error) {
	paths, err := b.List()
	if err != nil {
		return nil, err
	}
	if len(paths) <= b.keep {
		return nil, nil
	}

	var removed []string
	for _, p := range paths[b.keep:] {
		if err := os.Remove(p); err != nil {
			b.logger.Warn("remove old backup", zap.String("path", p), zap.Error(err))
			continue
		}
		removed = append(removed, p)
	}
	b.logger.Info("old backups pruned", zap.Int("removed", len(removed)), zap.Int("keep", b.keep))
	return removed, nil
}

// ReadSnapshot decodes a snapshot written by Create.
func ReadSnapshot(path string) (map[string][]map[string]any, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string][]map[string]any
	if err := json.Unmarshal(buf, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return data, nil
}
