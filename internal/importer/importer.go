// Package importer copies a local directory tree into a drive, creating a
// folder for every directory and uploading every regular file.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"drive-go/internal/drive"
	"drive-go/internal/model"
)

// Target is the part of the drive service an import writes to.
type Target interface {
	CreateFolder(ctx context.Context, owner string, parentID *string, name string) (*model.Folder, error)
	ListFolders(ctx context.Context, owner string, parentID *string) ([]*model.Folder, error)
	Upload(ctx context.Context, owner string, folderID *string, filename string, content []byte) (*drive.UploadResult, error)
}

// Options controls an import.
type Options struct {
	MaxSize int64    // files larger than this are skipped; 0 means no limit
	Ignore  []string // patterns applied before .driveignore, which may negate them
}

// Failure records a file or directory that could not be imported.
type Failure struct {
	Path string // relative to the import root
	Err  error
}

// Report summarizes an import.
type Report struct {
	Folders  int // folders created
	Reused   int // folders that already existed and were merged into
	Files    int // files uploaded
	Degraded int // uploads stored without an embedding
	Skipped  []string
	Failed   []Failure
}

// Importer walks local directories into a drive.
type Importer struct {
	target Target
	logger drive.Logger
	opts   Options
}

// New creates an Importer. logger may be nil.
func New(target Target, logger drive.Logger, opts Options) *Importer {
	if logger == nil {
		logger = drive.NewNopLogger()
	}
	return &Importer{target: target, logger: logger, opts: opts}
}

// Import copies the tree rooted at root into parentID (nil for the drive
// root). Per-file problems are collected in the report; the walk stops only
// on context cancellation, an unreadable root or an unavailable store.
func (im *Importer) Import(ctx context.Context, owner, root string, parentID *string) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat import root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("import root is not a directory: %s", root)
	}

	lines, err := ReadIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	ignore := CompileIgnoreRules(builtinIgnores, im.opts.Ignore, lines)

	report := &Report{}
	// folders maps a relative directory path to the drive folder it became.
	folders := map[string]*string{".": parentID}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if walkErr != nil {
			if rel == "." {
				return walkErr
			}
			report.Failed = append(report.Failed, Failure{Path: rel, Err: walkErr})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if rel == "." {
			return nil
		}

		if ignore.Skips(rel, d.IsDir()) {
			report.Skipped = append(report.Skipped, rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		parent, ok := folders[filepath.Dir(rel)]
		if !ok {
			// The parent directory failed to import.
			return nil
		}

		if d.IsDir() {
			id, err := im.ensureFolder(ctx, owner, parent, d.Name(), report)
			if err != nil {
				if fatal(err) {
					return err
				}
				report.Failed = append(report.Failed, Failure{Path: rel, Err: err})
				return filepath.SkipDir
			}
			folders[rel] = &id
			return nil
		}

		if !d.Type().IsRegular() {
			report.Skipped = append(report.Skipped, rel)
			return nil
		}
		if err := im.importFile(ctx, owner, parent, p, rel, d, report); err != nil {
			if fatal(err) {
				return err
			}
			report.Failed = append(report.Failed, Failure{Path: rel, Err: err})
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("importing %s: %w", root, err)
	}

	im.logger.Info("import finished", "owner", owner, "root", root, "folders", report.Folders, "files", report.Files, "skipped", len(report.Skipped), "failed", len(report.Failed))
	return report, nil
}

// ensureFolder creates name under parent, or reuses the existing sibling of
// that name so repeated imports merge.
func (im *Importer) ensureFolder(ctx context.Context, owner string, parent *string, name string, report *Report) (string, error) {
	f, err := im.target.CreateFolder(ctx, owner, parent, name)
	if err == nil {
		report.Folders++
		return f.ID, nil
	}
	if !errors.Is(err, drive.ErrNameConflict) {
		return "", err
	}

	siblings, lerr := im.target.ListFolders(ctx, owner, parent)
	if lerr != nil {
		return "", lerr
	}
	for _, s := range siblings {
		if s.Name == name {
			report.Reused++
			return s.ID, nil
		}
	}
	return "", err
}

func (im *Importer) importFile(ctx context.Context, owner string, folder *string, p, rel string, d fs.DirEntry, report *Report) error {
	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("stat %s: %w", p, err)
	}
	if im.opts.MaxSize > 0 && info.Size() > im.opts.MaxSize {
		report.Skipped = append(report.Skipped, rel)
		im.logger.Warn("skipping oversized file", "path", p, "size", info.Size())
		return nil
	}

	content, err := os.ReadFile(p)
	if err != nil {
		return fmt.Errorf("reading %s: %w", p, err)
	}
	res, err := im.target.Upload(ctx, owner, folder, d.Name(), content)
	if err != nil {
		return err
	}
	report.Files++
	if res.Degraded {
		report.Degraded++
	}
	im.logger.Debug("imported file", "path", p, "file", res.FileID)
	return nil
}

// fatal reports whether err should abort the whole walk.
func fatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, drive.ErrStorageUnavailable)
}
