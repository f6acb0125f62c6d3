// Package backupstore implements the pre-operation backup store:
// full and incremental snapshots of a fixed set of project paths plus
// the tool's own state directory, indexed append-front and checksummed
// with SHA-256.
package backupstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flowteam/flowctl/internal/gitexec"
	"github.com/flowteam/flowctl/internal/model"
)

const indexVersion = 1

// DefaultRetentionCap is the number of backups kept before the oldest
// are dropped.
const DefaultRetentionCap = 10

// Index is the on-disk "backups/index.json".
type Index struct {
	Version   int                 `json:"version"`
	CreatedAt time.Time           `json:"createdAt"`
	Backups   []model.BackupRecord `json:"backups"`
}

// Store owns the on-disk backup directory exclusively; nothing else
// writes under it.
type Store struct {
	baseDir      string // "<app-dir>/backups"
	repoRoot     string
	stateDir     string // tool state directory, snapshotted recursively
	targets      []string
	retentionCap int
	adapter      *gitexec.Adapter
}

// New constructs a Store rooted at baseDir. targets are paths relative
// to repoRoot snapshotted as single files (DefaultTargets if nil);
// stateDir is an additional path snapshotted recursively. adapter may
// be nil, in which case backups carry no Git snapshot.
func New(baseDir, repoRoot, stateDir string, targets []string, adapter *gitexec.Adapter) *Store {
	if targets == nil {
		targets = DefaultTargets
	}
	return &Store{
		baseDir:      baseDir,
		repoRoot:     repoRoot,
		stateDir:     stateDir,
		targets:      targets,
		retentionCap: DefaultRetentionCap,
		adapter:      adapter,
	}
}

func (s *Store) indexPath() string { return filepath.Join(s.baseDir, "index.json") }

func (s *Store) loadIndex() (Index, error) {
	data, err := os.ReadFile(s.indexPath()) //nolint:gosec // path is derived from the tool's own backup directory
	if os.IsNotExist(err) {
		return Index{Version: indexVersion, CreatedAt: time.Now().UTC()}, nil
	}
	if err != nil {
		return Index{}, fmt.Errorf("failed to read backup index: %w", err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, fmt.Errorf("failed to parse backup index: %w", err)
	}
	return idx, nil
}

func (s *Store) saveIndex(idx Index) error {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup index: %w", err)
	}
	if err := os.WriteFile(s.indexPath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write backup index: %w", err)
	}
	return nil
}

// List returns backup records newest-first.
func (s *Store) List() ([]model.BackupRecord, error) {
	idx, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	return idx.Backups, nil
}

// snapshotFile is an in-memory staged file pending write, paired with
// its derived entry.
type snapshotFile struct {
	entry   model.BackupFileEntry
	content []byte // nil for directory entries
}

// collect walks the fixed target set and the state directory, reading
// every regular file it finds. relPaths are relative to repoRoot.
func (s *Store) collect() ([]snapshotFile, error) {
	var files []snapshotFile

	for _, rel := range s.targets {
		abs := filepath.Join(s.repoRoot, rel)
		info, err := os.Stat(abs)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
		}
		if info.IsDir() {
			continue
		}
		content, err := os.ReadFile(abs) //nolint:gosec // rel comes from the fixed target table
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		files = append(files, snapshotFile{
			entry: model.BackupFileEntry{
				Path:     rel,
				Kind:     model.BackupFileRegular,
				Size:     info.Size(),
				ModTime:  info.ModTime(),
				Checksum: checksumHex(content),
			},
			content: content,
		})
	}

	if s.stateDir == "" {
		return files, nil
	}
	stateAbs := filepath.Join(s.repoRoot, s.stateDir)
	err := filepath.WalkDir(stateAbs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		rel, relErr := filepath.Rel(s.repoRoot, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			entries, readErr := os.ReadDir(path)
			if readErr == nil && len(entries) == 0 && path != stateAbs {
				info, _ := d.Info()
				files = append(files, snapshotFile{entry: model.BackupFileEntry{
					Path:    rel,
					Kind:    model.BackupFileDir,
					ModTime: info.ModTime(),
				}})
			}
			return nil
		}
		content, readErr := os.ReadFile(path) //nolint:gosec // path is under the tool's own state directory
		if readErr != nil {
			return readErr
		}
		info, _ := d.Info()
		files = append(files, snapshotFile{
			entry: model.BackupFileEntry{
				Path:     rel,
				Kind:     model.BackupFileRegular,
				Size:     info.Size(),
				ModTime:  info.ModTime(),
				Checksum: checksumHex(content),
			},
			content: content,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk state directory: %w", err)
	}

	return files, nil
}

func checksumHex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// snapshotChecksum computes the whole-snapshot SHA-256 over a
// canonical "<relpath>:<content>" concatenation in sorted-path order.
func snapshotChecksum(files []snapshotFile) string {
	sorted := make([]snapshotFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].entry.Path < sorted[j].entry.Path })

	h := sha256.New()
	for _, f := range sorted {
		h.Write([]byte(f.entry.Path))
		h.Write([]byte(":"))
		h.Write(f.content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func newBackupID() string {
	return fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405Z"), uuid.New().String()[:8])
}

// CreateFull snapshots every target path and the state directory.
func (s *Store) CreateFull(ctx context.Context, operation string) (model.BackupRecord, error) {
	files, err := s.collect()
	if err != nil {
		return model.BackupRecord{}, err
	}
	return s.write(ctx, model.BackupFull, operation, "", files)
}

// CreateIncremental snapshots only files that changed relative to
// baseID (the most recent backup if baseID is empty).
func (s *Store) CreateIncremental(ctx context.Context, operation, baseID string) (model.BackupRecord, error) {
	idx, err := s.loadIndex()
	if err != nil {
		return model.BackupRecord{}, err
	}
	if len(idx.Backups) == 0 {
		return s.CreateFull(ctx, operation)
	}

	base := idx.Backups[0]
	if baseID != "" {
		found := false
		for _, b := range idx.Backups {
			if b.ID == baseID {
				base, found = b, true
				break
			}
		}
		if !found {
			return model.BackupRecord{}, fmt.Errorf("base backup %q not found", baseID)
		}
	}

	baseEntries := make(map[string]model.BackupFileEntry, len(base.Files))
	for _, e := range base.Files {
		baseEntries[e.Path] = e
	}

	all, err := s.collect()
	if err != nil {
		return model.BackupRecord{}, err
	}

	var changed []snapshotFile
	for _, f := range all {
		prior, ok := baseEntries[f.entry.Path]
		if !ok {
			changed = append(changed, f)
			continue
		}
		switch f.entry.Kind {
		case model.BackupFileDir:
			if !prior.ModTime.Equal(f.entry.ModTime) {
				changed = append(changed, f)
			}
		default:
			if prior.Checksum != f.entry.Checksum {
				changed = append(changed, f)
			}
		}
	}

	return s.write(ctx, model.BackupIncremental, operation, base.ID, changed)
}

func (s *Store) write(ctx context.Context, kind model.BackupKind, operation, basedOnID string, files []snapshotFile) (model.BackupRecord, error) {
	id := newBackupID()
	dir := filepath.Join(s.baseDir, id)
	filesDir := filepath.Join(dir, "files")
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		return model.BackupRecord{}, fmt.Errorf("failed to create backup directory %s: %w", id, err)
	}

	var totalSize int64
	entries := make([]model.BackupFileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, f.entry)
		totalSize += f.entry.Size
		if f.entry.Kind == model.BackupFileDir {
			if err := os.MkdirAll(filepath.Join(filesDir, f.entry.Path), 0o755); err != nil {
				return model.BackupRecord{}, fmt.Errorf("failed to stage directory %s: %w", f.entry.Path, err)
			}
			continue
		}
		dest := filepath.Join(filesDir, f.entry.Path)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return model.BackupRecord{}, fmt.Errorf("failed to stage %s: %w", f.entry.Path, err)
		}
		if err := os.WriteFile(dest, f.content, 0o600); err != nil {
			return model.BackupRecord{}, fmt.Errorf("failed to stage %s: %w", f.entry.Path, err)
		}
	}

	record := model.BackupRecord{
		ID:        id,
		Kind:      kind,
		Operation: operation,
		Timestamp: time.Now().UTC(),
		BasedOnID: basedOnID,
		Files:     entries,
		TotalSize: totalSize,
		Checksum:  snapshotChecksum(files),
	}

	infoData, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return model.BackupRecord{}, fmt.Errorf("failed to marshal backup-info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "backup-info.json"), infoData, 0o600); err != nil {
		return model.BackupRecord{}, fmt.Errorf("failed to write backup-info: %w", err)
	}

	if snapshot, err := captureGitSnapshot(ctx, s.adapter); err != nil {
		return model.BackupRecord{}, fmt.Errorf("failed to capture git snapshot: %w", err)
	} else if snapshot != nil {
		gitData, marshalErr := json.MarshalIndent(snapshot, "", "  ")
		if marshalErr != nil {
			return model.BackupRecord{}, fmt.Errorf("failed to marshal git-info: %w", marshalErr)
		}
		if err := os.WriteFile(filepath.Join(dir, "git-info.json"), gitData, 0o600); err != nil {
			return model.BackupRecord{}, fmt.Errorf("failed to write git-info: %w", err)
		}
	}

	idx, err := s.loadIndex()
	if err != nil {
		return model.BackupRecord{}, err
	}
	idx.Backups = append([]model.BackupRecord{record}, idx.Backups...)
	s.applyRetention(&idx)
	if err := s.saveIndex(idx); err != nil {
		return model.BackupRecord{}, err
	}

	return record, nil
}

// applyRetention drops tail entries beyond the cap and removes their
// on-disk directories.
func (s *Store) applyRetention(idx *Index) {
	if s.retentionCap <= 0 || len(idx.Backups) <= s.retentionCap {
		return
	}
	dropped := idx.Backups[s.retentionCap:]
	idx.Backups = idx.Backups[:s.retentionCap]
	for _, b := range dropped {
		_ = os.RemoveAll(filepath.Join(s.baseDir, b.ID))
	}
}

// Verify recomputes the stored snapshot's checksum from disk and
// compares it against the record's recorded checksum. An incremental
// record whose based-on predecessor is no longer in the index (dropped
// by retention) is degraded to a full record first, so it stops
// claiming a base it cannot reach.
func (s *Store) Verify(id string) (bool, error) {
	record, err := s.find(id)
	if err != nil {
		return false, err
	}

	if record.Kind == model.BackupIncremental && record.BasedOnID != "" {
		if _, baseErr := s.find(record.BasedOnID); baseErr != nil {
			record, err = s.degradeToFull(record)
			if err != nil {
				return false, fmt.Errorf("failed to degrade orphaned incremental backup %q: %w", id, err)
			}
		}
	}

	filesDir := filepath.Join(s.baseDir, id, "files")

	staged := make([]snapshotFile, 0, len(record.Files))
	for _, e := range record.Files {
		if e.Kind == model.BackupFileDir {
			staged = append(staged, snapshotFile{entry: e})
			continue
		}
		content, err := os.ReadFile(filepath.Join(filesDir, e.Path)) //nolint:gosec // e.Path comes from the backup's own recorded entries
		if err != nil {
			return false, fmt.Errorf("failed to read staged file %s: %w", e.Path, err)
		}
		staged = append(staged, snapshotFile{entry: e, content: content})
	}

	return snapshotChecksum(staged) == record.Checksum, nil
}

// degradeToFull rewrites an orphaned incremental record as a full
// one, both in the index and in its backup-info.json. The record's
// staged file tree and checksum are unchanged; only its kind and base
// pointer are.
func (s *Store) degradeToFull(record model.BackupRecord) (model.BackupRecord, error) {
	record.Kind = model.BackupFull
	record.BasedOnID = ""

	idx, err := s.loadIndex()
	if err != nil {
		return model.BackupRecord{}, err
	}
	for i := range idx.Backups {
		if idx.Backups[i].ID == record.ID {
			idx.Backups[i] = record
			break
		}
	}
	if err := s.saveIndex(idx); err != nil {
		return model.BackupRecord{}, err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return model.BackupRecord{}, fmt.Errorf("failed to marshal degraded backup-info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.baseDir, record.ID, "backup-info.json"), data, 0o600); err != nil {
		return model.BackupRecord{}, fmt.Errorf("failed to rewrite backup-info: %w", err)
	}
	return record, nil
}

func (s *Store) find(id string) (model.BackupRecord, error) {
	idx, err := s.loadIndex()
	if err != nil {
		return model.BackupRecord{}, err
	}
	for _, b := range idx.Backups {
		if b.ID == id {
			return b, nil
		}
	}
	return model.BackupRecord{}, fmt.Errorf("backup %q not found", id)
}

// Restore overwrites the working tree from the stored file tree and,
// if a Git snapshot exists, attempts to restore the current branch.
// Restore refuses if Verify fails.
func (s *Store) Restore(ctx context.Context, id string) error {
	ok, err := s.Verify(id)
	if err != nil {
		return fmt.Errorf("failed to verify backup %q before restore: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("backup %q failed checksum verification; refusing to restore", id)
	}

	record, err := s.find(id)
	if err != nil {
		return err
	}
	filesDir := filepath.Join(s.baseDir, id, "files")

	for _, e := range record.Files {
		dest := filepath.Join(s.repoRoot, e.Path)
		if e.Kind == model.BackupFileDir {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("failed to restore directory %s: %w", e.Path, err)
			}
			continue
		}
		content, err := os.ReadFile(filepath.Join(filesDir, e.Path)) //nolint:gosec // e.Path comes from the backup's own recorded entries
		if err != nil {
			return fmt.Errorf("failed to read staged file %s: %w", e.Path, err)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("failed to prepare restore target %s: %w", e.Path, err)
		}
		if err := os.WriteFile(dest, content, 0o600); err != nil {
			return fmt.Errorf("failed to restore %s: %w", e.Path, err)
		}
	}

	gitInfoPath := filepath.Join(s.baseDir, id, "git-info.json")
	data, readErr := os.ReadFile(gitInfoPath) //nolint:gosec // path is under the backup store's own directory
	if readErr != nil {
		return nil // no git snapshot recorded; file-tree restore alone is complete
	}
	var snapshot GitSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to parse git-info for backup %q: %w", id, err)
	}
	if s.adapter == nil || snapshot.CurrentBranch == "" {
		return nil
	}
	if err := s.adapter.Switch(ctx, snapshot.CurrentBranch); err != nil {
		return fmt.Errorf("failed to restore branch %s: %w", snapshot.CurrentBranch, err)
	}
	return nil
}
