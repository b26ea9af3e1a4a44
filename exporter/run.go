// Package exporter renders manuscript bundles into publication formats.
package exporter

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gosimple/slug"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"scribe/config"
	"scribe/export/docx"
	epubgen "scribe/export/epub"
	"scribe/export/fountain"
	"scribe/export/htmldoc"
	"scribe/manuscript"
	"scribe/state"
)

//go:embed default.css
var defaultStylesheet []byte

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("export")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no bundle has been specified")
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

	format, err := config.ParseOutputFmt(cmd.String("to"))
	if err != nil {
		log.Warn("Unknown output format requested, switching to epub", zap.Error(err))
		format = config.OutputFmtEpub
	}

	env.Overwrite = cmd.Bool("overwrite")

	env.DefaultStyle = defaultStylesheet
	if env.Cfg.Export.Epub.StylesheetPath != "" {
		data, err := os.ReadFile(env.Cfg.Export.Epub.StylesheetPath)
		if err != nil {
			return fmt.Errorf("unable to read style css from %q: %w", env.Cfg.Export.Epub.StylesheetPath, err)
		}
		env.DefaultStyle = data
	}

	m, err := manuscript.LoadBundle(src)
	if err != nil {
		return fmt.Errorf("unable to load bundle: %w", err)
	}

	outputPath := buildOutputPath(m, src, dst, format, env)
	if !env.Overwrite {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("destination already exists (%s), use overwrite to replace it", outputPath)
		}
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	log.Info("Export starting",
		zap.String("bundle", src),
		zap.String("output", outputPath),
		zap.Stringer("format", format))
	defer func(start time.Time) {
		log.Info("Export completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	switch format {
	case config.OutputFmtFountain:
		return writeFile(outputPath, fountain.Export(m, env.Cfg.Export.Fountain.TitlePage))
	case config.OutputFmtDocx:
		return writeWith(outputPath, func(f *os.File) error {
			return docx.Export(f, m)
		})
	case config.OutputFmtHTML:
		return writeWith(outputPath, func(f *os.File) error {
			return htmldoc.Export(f, m, htmldoc.Options{
				EmbedMedia: env.Cfg.Export.HTML.EmbedMedia,
				Stylesheet: env.DefaultStyle,
				TOCTitle:   env.Cfg.Document.TOCTitle,
			})
		})
	case config.OutputFmtEpub:
		return epubgen.Generate(ctx, m, outputPath, log)
	default:
		// parser above guarantees a known format
		panic("unsupported format requested")
	}
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	return nil
}

func writeWith(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer f.Close()

	if err := fn(f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}
	return nil
}

// buildOutputPath derives output file location from bundle name or the
// configured naming template.
func buildOutputPath(m *manuscript.Manuscript, src, dst string, format config.OutputFmt, env *state.LocalEnv) string {
	name := ""
	if env.Cfg.Document.OutputNameTemplate != "" {
		expanded, err := manuscript.ExpandTemplate(m, config.OutputNameTemplateFieldName, env.Cfg.Document.OutputNameTemplate, format)
		if err != nil {
			env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		} else {
			name = expanded
		}
	}
	if name == "" {
		name = m.Title
	}
	if name == "" {
		name = filepath.Base(filepath.Clean(src))
	}
	if env.Cfg.Document.FileNameTransliterate {
		name = slug.Make(name)
	}
	return filepath.Join(dst, config.CleanFileName(name)+format.Ext())
}
