// Package epub packages a manuscript as an EPUB3 container.
package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"

	"scribe/config"
	"scribe/manuscript"
	"scribe/state"
)

const (
	mimetypeContent = "application/epub+zip"
	oebpsDir        = "OEBPS"
	imagesDir       = "images"
)

// Generate creates the EPUB output file.
func Generate(ctx context.Context, m *manuscript.Manuscript, outputPath string, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	cfg := env.Cfg

	log.Info("Generating EPUB", zap.String("output", outputPath))

	if err := ensureCover(m, &cfg.Document.Images, env.DefaultCover, log); err != nil {
		return fmt.Errorf("unable to prepare cover: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	tmpName := outputPath + ".tmp"
	f, err := os.Create(tmpName)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer f.Close()
	defer os.Remove(tmpName)

	zw := zip.NewWriter(f)
	defer zw.Close()

	if err := writeMimetype(zw); err != nil {
		return fmt.Errorf("unable to write mimetype: %w", err)
	}
	if err := writeContainer(zw); err != nil {
		return fmt.Errorf("unable to write container: %w", err)
	}

	chapters := buildChapters(m)
	for _, chapter := range chapters {
		if err := writeXMLToZip(zw, path.Join(oebpsDir, chapter.Filename), chapter.Doc); err != nil {
			return fmt.Errorf("unable to write chapter %s: %w", chapter.ID, err)
		}
	}

	if err := writeImages(zw, m); err != nil {
		return fmt.Errorf("unable to write images: %w", err)
	}
	if err := writeStylesheet(zw, &cfg.Export.Epub, env.DefaultStyle); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}
	if m.Cover() != nil {
		if err := writeCoverPage(zw, m, &cfg.Document.Images.Cover); err != nil {
			return fmt.Errorf("unable to write cover page: %w", err)
		}
	}
	if err := writeOPF(zw, m, chapters); err != nil {
		return fmt.Errorf("unable to write OPF: %w", err)
	}
	if err := writeNav(zw, m, cfg.Document.TOCTitle, chapters); err != nil {
		return fmt.Errorf("unable to write NAV: %w", err)
	}

	// make sure buffers are flushed before continuing
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to close output archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}

	if cfg.Export.Epub.FixZip {
		return copyZipWithoutDataDescriptors(tmpName, outputPath)
	}
	return copyFile(tmpName, outputPath)
}

// buildChapters renders every section into its own page. Cover and TOC
// sections are skipped, the packaged cover page and nav document replace
// them.
func buildChapters(m *manuscript.Manuscript) []chapterData {
	var chapters []chapterData
	num := 0
	for _, s := range m.Sections {
		if s.Type == manuscript.SectionTypeCover || s.Type == manuscript.SectionTypeToc {
			continue
		}
		num++
		chapters = append(chapters, chapterData{
			ID:           fmt.Sprintf("index%05d", num),
			Filename:     fmt.Sprintf("index%05d.xhtml", num),
			Title:        s.Title,
			Doc:          sectionToXHTML(m, s),
			IncludeInTOC: s.Type == manuscript.SectionTypeChapter,
			Linear:       s.Type != manuscript.SectionTypeNoMatter,
		})
	}
	return chapters
}

func writeMimetype(zw *zip.Writer) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, mimetypeContent)
	return err
}

func writeContainer(zw *zip.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	container := doc.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", "urn:oasis:names:tc:opendocument:xmlns:container")

	rootfiles := container.CreateElement("rootfiles")
	rootfile := rootfiles.CreateElement("rootfile")
	rootfile.CreateAttr("full-path", path.Join(oebpsDir, "content.opf"))
	rootfile.CreateAttr("media-type", "application/oebps-package+xml")

	return writeXMLToZip(zw, "META-INF/container.xml", doc)
}

func writeImages(zw *zip.Writer, m *manuscript.Manuscript) error {
	for _, img := range m.Images {
		if err := writeDataToZip(zw, path.Join(oebpsDir, imagesDir, img.Name), img.Data); err != nil {
			return fmt.Errorf("unable to write image %s: %w", img.Name, err)
		}
	}
	return nil
}

func writeStylesheet(zw *zip.Writer, cfg *config.EpubConfig, css []byte) error {
	if cfg.StylesheetPath != "" {
		custom, err := os.ReadFile(cfg.StylesheetPath)
		if err != nil {
			return fmt.Errorf("unable to read stylesheet: %w", err)
		}
		css = custom
	}
	return writeDataToZip(zw, path.Join(oebpsDir, "stylesheet.css"), css)
}

func writeCoverPage(zw *zip.Writer, m *manuscript.Manuscript, cfg *config.CoverConfig) error {
	cover := m.Cover()
	if cover == nil {
		return nil
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")

	head := html.CreateElement("head")

	meta := head.CreateElement("meta")
	meta.CreateAttr("http-equiv", "Content-Type")
	meta.CreateAttr("content", "text/html; charset=utf-8")

	style := head.CreateElement("style")
	style.CreateAttr("type", "text/css")
	switch cfg.Resize {
	case config.ImageResizeModeStretch:
		style.SetText("html, body { margin: 0; padding: 0; width: 100%; height: 100%; } svg { display: block; width: 100%; height: 100%; }")
	default:
		style.SetText("html, body { margin: 0; padding: 0; width: 100%; height: 100%; } svg { display: block; width: auto; height: 100%; margin: 0 auto }")
	}

	title := head.CreateElement("title")
	title.SetText(m.Title)

	body := html.CreateElement("body")

	svg := body.CreateElement("svg")
	svg.CreateAttr("version", "1.1")
	svg.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.CreateAttr("xmlns:xlink", "http://www.w3.org/1999/xlink")

	w, h := cfg.Width, cfg.Height
	switch cfg.Resize {
	case config.ImageResizeModeStretch:
		svg.CreateAttr("viewBox", "0 0 100 100")
		svg.CreateAttr("preserveAspectRatio", "xMidYMid slice")
		svgImage := svg.CreateElement("image")
		svgImage.CreateAttr("x", "0")
		svgImage.CreateAttr("y", "0")
		svgImage.CreateAttr("width", "100")
		svgImage.CreateAttr("height", "100")
		svgImage.CreateAttr("xlink:href", imagesDir+"/"+cover.Name)
	default:
		svg.CreateAttr("viewBox", fmt.Sprintf("0 0 %d %d", w, h))
		svg.CreateAttr("preserveAspectRatio", "xMidYMid meet")
		svgImage := svg.CreateElement("image")
		svgImage.CreateAttr("x", "0")
		svgImage.CreateAttr("y", "0")
		svgImage.CreateAttr("width", fmt.Sprintf("%d", w))
		svgImage.CreateAttr("height", fmt.Sprintf("%d", h))
		svgImage.CreateAttr("xlink:href", imagesDir+"/"+cover.Name)
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, "cover.xhtml"), doc)
}

func writeOPF(zw *zip.Writer, m *manuscript.Manuscript, chapters []chapterData) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", "http://www.idpf.org/2007/opf")
	pkg.CreateAttr("unique-identifier", "BookId")
	pkg.CreateAttr("version", "3.0")

	metadata := pkg.CreateElement("metadata")
	metadata.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	metadata.CreateAttr("xmlns:opf", "http://www.idpf.org/2007/opf")

	dcTitle := metadata.CreateElement("dc:title")
	dcTitle.SetText(m.Title)

	dcIdentifier := metadata.CreateElement("dc:identifier")
	dcIdentifier.CreateAttr("id", "BookId")
	dcIdentifier.SetText("urn:uuid:" + uuid.NewString())

	dcLang := metadata.CreateElement("dc:language")
	dcLang.SetText(m.Language)

	if m.Author != "" {
		dcCreator := metadata.CreateElement("dc:creator")
		dcCreator.CreateAttr("id", "creator0")
		dcCreator.SetText(m.Author)

		roleMeta := metadata.CreateElement("meta")
		roleMeta.CreateAttr("refines", "#creator0")
		roleMeta.CreateAttr("property", "role")
		roleMeta.CreateAttr("scheme", "marc:relators")
		roleMeta.SetText("aut")
	}

	modifiedMeta := metadata.CreateElement("meta")
	modifiedMeta.CreateAttr("property", "dcterms:modified")
	modifiedMeta.SetText(time.Now().UTC().Format("2006-01-02T15:04:05Z"))

	manifest := pkg.CreateElement("manifest")

	nav := manifest.CreateElement("item")
	nav.CreateAttr("id", "nav")
	nav.CreateAttr("href", "nav.xhtml")
	nav.CreateAttr("media-type", "application/xhtml+xml")
	nav.CreateAttr("properties", "nav")

	cssItem := manifest.CreateElement("item")
	cssItem.CreateAttr("id", "stylesheet")
	cssItem.CreateAttr("href", "stylesheet.css")
	cssItem.CreateAttr("media-type", "text/css")

	cover := m.Cover()
	if cover != nil {
		coverPageItem := manifest.CreateElement("item")
		coverPageItem.CreateAttr("id", "cover-page")
		coverPageItem.CreateAttr("href", "cover.xhtml")
		coverPageItem.CreateAttr("media-type", "application/xhtml+xml")
		coverPageItem.CreateAttr("properties", "svg")
	}

	for _, chapter := range chapters {
		item := manifest.CreateElement("item")
		item.CreateAttr("id", chapter.ID)
		item.CreateAttr("href", chapter.Filename)
		item.CreateAttr("media-type", "application/xhtml+xml")
	}

	for i, img := range m.Images {
		item := manifest.CreateElement("item")
		if cover != nil && img.Name == cover.Name {
			item.CreateAttr("id", "book-cover-image")
			item.CreateAttr("properties", "cover-image")
		} else {
			item.CreateAttr("id", fmt.Sprintf("img%d", i))
		}
		item.CreateAttr("href", imagesDir+"/"+img.Name)
		item.CreateAttr("media-type", img.MediaType)
	}

	spine := pkg.CreateElement("spine")
	if cover != nil {
		coverRef := spine.CreateElement("itemref")
		coverRef.CreateAttr("idref", "cover-page")
	}
	for _, chapter := range chapters {
		itemref := spine.CreateElement("itemref")
		itemref.CreateAttr("idref", chapter.ID)
		if !chapter.Linear {
			itemref.CreateAttr("linear", "no")
		}
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, "content.opf"), doc)
}

func writeNav(zw *zip.Writer, m *manuscript.Manuscript, tocTitle string, chapters []chapterData) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	html.CreateAttr("xmlns:epub", "http://www.idpf.org/2007/ops")

	head := html.CreateElement("head")

	meta := head.CreateElement("meta")
	meta.CreateAttr("charset", "utf-8")

	title := head.CreateElement("title")
	title.SetText(tocTitle)

	link := head.CreateElement("link")
	link.CreateAttr("rel", "stylesheet")
	link.CreateAttr("type", "text/css")
	link.CreateAttr("href", "stylesheet.css")

	body := html.CreateElement("body")

	nav := body.CreateElement("nav")
	nav.CreateAttr("epub:type", "toc")
	nav.CreateAttr("id", "toc")
	nav.CreateAttr("role", "doc-toc")

	h1 := nav.CreateElement("h1")
	h1.CreateAttr("class", "toc-title")
	h1.SetText(tocTitle)

	ol := nav.CreateElement("ol")
	ol.CreateAttr("class", "toc-list")
	for _, chapter := range chapters {
		if !chapter.IncludeInTOC {
			continue
		}
		li := ol.CreateElement("li")
		li.CreateAttr("class", "toc-item")
		a := li.CreateElement("a")
		a.CreateAttr("class", "link-toc")
		a.CreateAttr("href", chapter.Filename)
		a.SetText(chapter.Title)
	}

	landmarksNav := body.CreateElement("nav")
	landmarksNav.CreateAttr("epub:type", "landmarks")
	landmarksNav.CreateAttr("id", "landmarks")
	landmarksNav.CreateAttr("hidden", "")

	landmarksH2 := landmarksNav.CreateElement("h2")
	landmarksH2.SetText("Landmarks")

	landmarksOL := landmarksNav.CreateElement("ol")

	if m.Cover() != nil {
		li := landmarksOL.CreateElement("li")
		a := li.CreateElement("a")
		a.CreateAttr("epub:type", "cover")
		a.CreateAttr("href", "cover.xhtml")
		a.SetText("Cover")
	}

	for _, chapter := range chapters {
		if !chapter.IncludeInTOC {
			continue
		}
		li := landmarksOL.CreateElement("li")
		a := li.CreateElement("a")
		a.CreateAttr("epub:type", "bodymatter")
		a.CreateAttr("href", chapter.Filename)
		a.SetText("Start")
		break
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, "nav.xhtml"), doc)
}

func writeXMLToZip(zw *zip.Writer, name string, doc *etree.Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return err
	}
	return writeDataToZip(zw, name, buf.Bytes())
}

func writeDataToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func copyZipWithoutDataDescriptors(from, to string) error {
	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destinationFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destinationFile.Close()

	if _, err = io.Copy(destinationFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}

	if err = destinationFile.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}
