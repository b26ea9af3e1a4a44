package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const (
	mimetypeContent = "application/epub+zip"
	containerPath   = "META-INF/container.xml"
)

// ParseFile opens and parses an EPUB file from disk.
func ParseFile(name string, log *zap.Logger) (*Book, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("unable to open EPUB: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("unable to stat EPUB: %w", err)
	}
	return Parse(f, fi.Size(), log)
}

// Parse reads an EPUB container. Malformed container.xml or package
// document abort parsing; a missing cover, TOC or metadata field degrades
// to defaults and never fails the import.
func Parse(r io.ReaderAt, size int64, log *zap.Logger) (*Book, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("unable to read EPUB container: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[path.Clean(f.Name)] = f
	}

	if f, ok := files["mimetype"]; ok {
		if data, err := readZipFile(f); err == nil && strings.TrimSpace(string(data)) != mimetypeContent {
			log.Warn("Unexpected mimetype, trying to parse anyway", zap.String("mimetype", strings.TrimSpace(string(data))))
		}
	}

	opfPath, err := parseContainer(files)
	if err != nil {
		return nil, err
	}

	return parsePackage(files, opfPath, log)
}

// parseContainer reads META-INF/container.xml and returns the rootfile path.
func parseContainer(files map[string]*zip.File) (string, error) {
	f, ok := files[containerPath]
	if !ok {
		return "", fmt.Errorf("invalid EPUB: missing %s", containerPath)
	}

	doc, err := readXML(f)
	if err != nil {
		return "", fmt.Errorf("invalid EPUB: malformed %s: %w", containerPath, err)
	}

	for _, rootfile := range doc.FindElements("//rootfile") {
		if full := rootfile.SelectAttrValue("full-path", ""); full != "" {
			return path.Clean(full), nil
		}
	}
	return "", fmt.Errorf("invalid EPUB: %s declares no rootfile", containerPath)
}

type manifestItem struct {
	id         string
	href       string // container path, already resolved against OPF dir
	mediaType  string
	properties string
}

func parsePackage(files map[string]*zip.File, opfPath string, log *zap.Logger) (*Book, error) {
	f, ok := files[opfPath]
	if !ok {
		return nil, fmt.Errorf("invalid EPUB: missing package document %s", opfPath)
	}
	doc, err := readXML(f)
	if err != nil {
		return nil, fmt.Errorf("invalid EPUB: malformed package document: %w", err)
	}
	pkg := doc.Root()
	if pkg == nil || pkg.Tag != "package" {
		return nil, fmt.Errorf("invalid EPUB: package document has no package root")
	}
	opfDir := path.Dir(opfPath)

	book := &Book{}
	parseMetadata(pkg, book, log)

	// manifest
	items := make(map[string]manifestItem)
	if manifest := pkg.SelectElement("manifest"); manifest != nil {
		for _, item := range manifest.SelectElements("item") {
			mi := manifestItem{
				id:         item.SelectAttrValue("id", ""),
				href:       resolveHref(opfDir, item.SelectAttrValue("href", "")),
				mediaType:  item.SelectAttrValue("media-type", ""),
				properties: item.SelectAttrValue("properties", ""),
			}
			if mi.id == "" || mi.href == "" {
				log.Warn("Manifest item without id or href, ignoring", zap.String("id", mi.id), zap.String("href", mi.href))
				continue
			}
			items[mi.id] = mi
		}
	} else {
		return nil, fmt.Errorf("invalid EPUB: package document has no manifest")
	}

	spine := pkg.SelectElement("spine")
	if spine == nil {
		return nil, fmt.Errorf("invalid EPUB: package document has no spine")
	}

	collectImages(files, items, book, log)
	collectStylesheets(files, items, book, log)
	resolveCover(pkg, items, book, log)

	titles := resolveTOCTitles(files, items, spine, opfDir, log)

	n := 0
	for _, itemref := range spine.SelectElements("itemref") {
		idref := itemref.SelectAttrValue("idref", "")
		item, ok := items[idref]
		if !ok {
			log.Warn("Spine references unknown manifest item, ignoring", zap.String("idref", idref))
			continue
		}
		f, ok := files[item.href]
		if !ok {
			log.Warn("Spine document missing from container, ignoring", zap.String("href", item.href))
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			log.Warn("Unable to read spine document, ignoring", zap.String("href", item.href), zap.Error(err))
			continue
		}

		n++
		section := &Section{
			ID:      item.id,
			Href:    item.href,
			Content: string(data),
			Linear:  !strings.EqualFold(itemref.SelectAttrValue("linear", "yes"), "no"),
		}

		if t, ok := titles[item.href]; ok && t != "" {
			section.Title = t
		} else if t := htmlTitle(section.Content); t != "" {
			section.Title = t
		} else {
			section.Title = fmt.Sprintf("Section %d", n)
		}

		section.Type = classify(section, item, book)
		book.Sections = append(book.Sections, section)
	}
	return book, nil
}

func parseMetadata(pkg *etree.Element, book *Book, log *zap.Logger) {
	metadata := pkg.SelectElement("metadata")
	if metadata == nil {
		log.Warn("Package document has no metadata, using defaults")
		return
	}
	for _, child := range metadata.ChildElements() {
		switch child.Tag {
		case "title":
			if book.Title == "" {
				book.Title = strings.TrimSpace(child.Text())
			}
		case "creator":
			if book.Author == "" {
				book.Author = strings.TrimSpace(child.Text())
			}
		case "language":
			if book.Language == "" {
				book.Language = strings.TrimSpace(child.Text())
			}
		}
	}
}

// resolveCover finds the cover image: EPUB3 cover-image property first,
// EPUB2 meta[name=cover] fallback. Absence is not an error.
func resolveCover(pkg *etree.Element, items map[string]manifestItem, book *Book, log *zap.Logger) {
	for _, item := range items {
		if hasProperty(item.properties, "cover-image") {
			if img := book.imageByHref(item.href); img != nil {
				book.Cover = img
				return
			}
		}
	}

	if metadata := pkg.SelectElement("metadata"); metadata != nil {
		for _, meta := range metadata.SelectElements("meta") {
			if !strings.EqualFold(meta.SelectAttrValue("name", ""), "cover") {
				continue
			}
			id := meta.SelectAttrValue("content", "")
			if item, ok := items[id]; ok {
				if img := book.imageByHref(item.href); img != nil {
					book.Cover = img
					return
				}
			}
			log.Debug("EPUB2 cover meta references unknown item", zap.String("content", id))
		}
	}
	log.Debug("No cover image found")
}

func collectImages(files map[string]*zip.File, items map[string]manifestItem, book *Book, log *zap.Logger) {
	seen := make(map[string]int)
	for _, item := range items {
		if !strings.HasPrefix(item.mediaType, "image/") {
			continue
		}
		f, ok := files[item.href]
		if !ok {
			log.Warn("Manifest image missing from container, ignoring", zap.String("href", item.href))
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			log.Warn("Unable to read image, ignoring", zap.String("href", item.href), zap.Error(err))
			continue
		}

		mediaType := item.mediaType
		if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown && kind.MIME.Value != mediaType {
			// manifest lies sometimes, trust the bytes
			log.Debug("Manifest media type differs from detected",
				zap.String("href", item.href), zap.String("manifest", mediaType), zap.String("detected", kind.MIME.Value))
			mediaType = kind.MIME.Value
		}

		name := path.Base(item.href)
		if n := seen[name]; n > 0 {
			ext := path.Ext(name)
			name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext)
		}
		seen[path.Base(item.href)]++

		book.Images = append(book.Images, &Media{
			ID:        item.id,
			Name:      name,
			Href:      item.href,
			MediaType: mediaType,
			Data:      data,
		})
	}
}

func collectStylesheets(files map[string]*zip.File, items map[string]manifestItem, book *Book, log *zap.Logger) {
	for _, item := range items {
		if item.mediaType != "text/css" {
			continue
		}
		f, ok := files[item.href]
		if !ok {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			log.Warn("Unable to read stylesheet, ignoring", zap.String("href", item.href), zap.Error(err))
			continue
		}
		book.Stylesheets = append(book.Stylesheets, data)
	}
}

func (b *Book) imageByHref(href string) *Media {
	for _, img := range b.Images {
		if img.Href == href {
			return img
		}
	}
	return nil
}

func hasProperty(properties, want string) bool {
	for _, p := range strings.Fields(properties) {
		if p == want {
			return true
		}
	}
	return false
}

// resolveHref resolves a manifest href against the OPF directory and strips
// any fragment.
func resolveHref(opfDir, href string) string {
	if href == "" {
		return ""
	}
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	href = unescapeHref(href)
	if opfDir == "." {
		return path.Clean(href)
	}
	return path.Clean(path.Join(opfDir, href))
}

func unescapeHref(href string) string {
	// minimal percent decoding, full url parsing is overkill for zip paths
	return strings.NewReplacer("%20", " ", "%25", "%").Replace(href)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// readXML parses a zip entry as XML tolerating legacy encodings and HTML
// named entities the way old reading systems do.
func readXML(f *zip.File) (*etree.Document, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		ValidateInput: false,
		Permissive:    true,
	}
	if _, err := doc.ReadFrom(rc); err != nil {
		return nil, err
	}
	return doc, nil
}
