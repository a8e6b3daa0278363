package migrate

import (
	"archive/zip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	backupPrefix  = "backup_"
	backupDBName  = "app.db"
	backupZipName = "assets.zip"
	backupTimeFmt = "20060102_150405"
)

// backup snapshots the store and archives the assets directory into a new
// timestamped directory under BackupsDir. It returns "" when there was
// nothing to back up.
func (r *Runner) backup(ctx context.Context, db *sql.DB, storeExisted bool) (string, error) {
	assetsExist := false
	if r.cfg.AssetsDir != "" {
		if fi, err := os.Stat(r.cfg.AssetsDir); err == nil && fi.IsDir() {
			assetsExist = true
		}
	}
	if !storeExisted && !assetsExist {
		return "", nil
	}

	dir, err := newBackupDir(r.cfg.BackupsDir, r.cfg.Now())
	if err != nil {
		return "", err
	}

	if storeExisted {
		// VACUUM INTO produces a consistent copy that includes WAL content.
		if _, err := db.ExecContext(ctx, "VACUUM INTO ?", filepath.Join(dir, backupDBName)); err != nil {
			return dir, fmt.Errorf("snapshot store: %w", err)
		}
	}
	if assetsExist {
		if err := zipDir(r.cfg.AssetsDir, filepath.Join(dir, backupZipName), r.cfg.BackupsDir); err != nil {
			return dir, fmt.Errorf("archive assets: %w", err)
		}
	}

	r.logger.Info("backup written", "dir", dir, "store", storeExisted, "assets", assetsExist)
	return dir, nil
}

func newBackupDir(root string, now time.Time) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create backups directory: %w", err)
	}
	base := filepath.Join(root, backupPrefix+now.Format(backupTimeFmt))
	for i := 0; ; i++ {
		dir := base
		if i > 0 {
			dir = base + "_" + strconv.Itoa(i)
		}
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("create backup directory: %w", err)
		}
	}
}

// zipDir writes every regular file below src into a zip archive at dst.
// Entries under skip are left out.
func zipDir(src, dst, skip string) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(out)
	absSkip, _ := filepath.Abs(skip)

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if abs, _ := filepath.Abs(path); skip != "" && abs == absSkip {
			return filepath.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if walkErr != nil {
		_ = zw.Close()
		return walkErr
	}
	return zw.Close()
}

// PruneBackups keeps the newest keep backup directories in dir and removes
// the rest. keep <= 0 disables pruning. It returns the removed paths.
func PruneBackups(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, wrapError("prune", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return nil, nil
	}

	// Names embed a sortable timestamp, newest last.
	sort.Strings(names)
	var removed []string
	for _, name := range names[:len(names)-keep] {
		path := filepath.Join(dir, name)
		if err := os.RemoveAll(path); err != nil {
			return removed, wrapError("prune", err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
