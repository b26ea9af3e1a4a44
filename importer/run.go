// Package importer turns EPUB sources into manuscript bundles. It accepts
// a single file, a directory tree or a zip archive with books inside.
package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"scribe/archive"
	"scribe/config"
	"scribe/epub"
	"scribe/manuscript"
	"scribe/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("import")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	log.Info("Import starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Import completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}

	if fi.Mode().IsDir() {
		return processDir(ctx, src, dst, log)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}

	switch strings.ToLower(filepath.Ext(src)) {
	case ".epub":
		return importFile(ctx, src, filepath.Base(src), dst, log)
	case ".zip":
		return processArchive(ctx, src, dst, log)
	default:
		return fmt.Errorf("input was not recognized as EPUB book or archive (%s)", src)
	}
}

// processDir walks directory tree finding books and archives with books.
// Files are imported in natural order so "book 2" lands before "book 10".
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) error {
	var found []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".epub", ".zip":
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(found) == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
		return nil
	}
	sort.Sort(natural.StringSlice(found))

	for _, path := range found {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.ToLower(filepath.Ext(path)) == ".zip" {
			if err := processArchive(ctx, path, dst, log); err != nil {
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			continue
		}
		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := importFile(ctx, path, src, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
	}
	return nil
}

// processArchive imports every EPUB found inside a zip archive.
func processArchive(ctx context.Context, archivePath, dst string, log *zap.Logger) error {
	return archive.Walk(archivePath, "*.epub", func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("unable to open archive entry %s: %w", f.Name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("unable to read archive entry %s: %w", f.Name, err)
		}

		name := entryName(ctx, f)
		log.Debug("Processing archive entry", zap.String("archive", arc), zap.String("entry", name))
		if err := importBook(ctx, bytes.NewReader(data), int64(len(data)), name, dst, log); err != nil {
			log.Error("Unable to process archive entry", zap.String("entry", name), zap.Error(err))
		}
		return nil
	})
}

// entryName recovers archive entry name recorded in a legacy code page.
func entryName(ctx context.Context, f *zip.File) string {
	env := state.EnvFromContext(ctx)
	if env.CodePage == nil || !f.NonUTF8 {
		return f.Name
	}
	decoded, err := env.CodePage.NewDecoder().String(f.Name)
	if err != nil {
		return f.Name
	}
	return decoded
}

func importFile(ctx context.Context, path, srcName, dst string, log *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	return importBook(ctx, f, fi.Size(), srcName, dst, log)
}

// importBook parses one EPUB and stores resulting bundle under dst.
func importBook(ctx context.Context, r io.ReaderAt, size int64, srcName, dst string, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	book, err := epub.Parse(r, size, log)
	if err != nil {
		return fmt.Errorf("unable to parse %s: %w", srcName, err)
	}

	m := buildManuscript(book, &env.Cfg.Import, &env.Cfg.Document.Images, log)

	bundleDir := filepath.Join(dst, bundleDirName(m, srcName, env))
	if !env.Overwrite {
		if _, err := os.Stat(bundleDir); err == nil {
			return fmt.Errorf("bundle already exists (%s), use overwrite to replace it", bundleDir)
		}
	}

	if err := manuscript.SaveBundle(m, bundleDir); err != nil {
		return fmt.Errorf("unable to save bundle: %w", err)
	}

	log.Info("Imported book",
		zap.String("source", srcName),
		zap.String("bundle", bundleDir),
		zap.Int("sections", len(m.Sections)),
		zap.Int("images", len(m.Images)))
	return nil
}

// bundleDirName derives bundle directory from book title falling back to
// the source file name.
func bundleDirName(m *manuscript.Manuscript, srcName string, env *state.LocalEnv) string {
	name := m.Title
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(srcName), filepath.Ext(srcName))
	}
	if env.Cfg.Document.FileNameTransliterate {
		name = slug.Make(name)
	}
	name = config.CleanFileName(name)
	if !env.NoDirs {
		if sub := filepath.Dir(srcName); sub != "." && sub != string(filepath.Separator) {
			return filepath.Join(sub, name)
		}
	}
	return name
}
