package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Push uploads every file of the bundle directory to the remote
// repository under the per-user backup prefix.
func Push(ctx context.Context, c *Client, bundleDir string, log *zap.Logger) error {
	bundleName := filepath.Base(filepath.Clean(bundleDir))
	prefix := c.RemotePrefix(bundleName)

	log.Info("Pushing bundle backup",
		zap.String("bundle", bundleDir),
		zap.String("remote", prefix))

	count := 0
	err := filepath.WalkDir(bundleDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(bundleDir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("unable to read %s: %w", p, err)
		}
		remote := path.Join(prefix, filepath.ToSlash(rel))
		message := fmt.Sprintf("backup %s: %s", bundleName, filepath.ToSlash(rel))
		if err := c.Upload(ctx, remote, data, message); err != nil {
			return err
		}
		log.Debug("Uploaded file", zap.String("remote", remote), zap.Int("size", len(data)))
		count++
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("Backup complete", zap.Int("files", count))
	return nil
}

// Pull downloads the named bundle from the remote repository into destDir.
// The destination keeps the bundle layout, existing files are overwritten.
func Pull(ctx context.Context, c *Client, bundleName, destDir string, log *zap.Logger) error {
	prefix := c.RemotePrefix(bundleName)

	log.Info("Pulling bundle backup",
		zap.String("remote", prefix),
		zap.String("destination", destDir))

	count := 0
	err := pullDir(ctx, c, prefix, prefix, destDir, &count, log)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("no backup found for bundle %q", bundleName)
		}
		return err
	}

	log.Info("Restore complete", zap.Int("files", count))
	return nil
}

func pullDir(ctx context.Context, c *Client, prefix, dir, destDir string, count *int, log *zap.Logger) error {
	entries, err := c.List(ctx, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		rel := strings.TrimPrefix(strings.TrimPrefix(e.Path, prefix), "/")
		switch e.Type {
		case "dir":
			if err := pullDir(ctx, c, prefix, e.Path, destDir, count, log); err != nil {
				return err
			}
		case "file":
			data, err := c.Download(ctx, e.Path)
			if err != nil {
				return err
			}
			target := filepath.Join(destDir, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("unable to create directory: %w", err)
			}
			if err := os.WriteFile(target, data, 0644); err != nil {
				return fmt.Errorf("unable to write %s: %w", target, err)
			}
			log.Debug("Downloaded file", zap.String("file", target), zap.Int("size", len(data)))
			*count++
		default:
			log.Warn("Skipping unsupported entry", zap.String("path", e.Path), zap.String("type", e.Type))
		}
	}
	return nil
}
