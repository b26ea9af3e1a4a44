package importer

import (
	"go.uber.org/zap"

	"scribe/config"
	"scribe/css"
	"scribe/epub"
	"scribe/manuscript"
	"scribe/markdown"
	"scribe/utils/images"
)

// buildManuscript converts a parsed EPUB into the editable manuscript
// form: every spine section is reduced to markdown, stylesheet data is
// distilled into centering and visibility hints before it is dropped.
func buildManuscript(book *epub.Book, cfg *config.ImportConfig, imgCfg *config.ImagesConfig, log *zap.Logger) *manuscript.Manuscript {
	hints := css.NewHints()
	for _, data := range book.Stylesheets {
		hints.Scan(data, log)
	}

	m := &manuscript.Manuscript{
		Title:    book.Title,
		Author:   book.Author,
		Language: book.Language,
	}
	if m.Language == "" {
		m.Language = cfg.DefaultLanguage
	}

	for _, s := range book.Sections {
		st, err := manuscript.ParseSectionType(s.Type)
		if err != nil {
			st = manuscript.SectionTypeChapter
		}
		if st == manuscript.SectionTypeNoMatter && !cfg.KeepNoMatter {
			log.Debug("Dropping non-linear section", zap.String("title", s.Title))
			continue
		}

		content, err := markdown.Extract(s.Content, markdown.Options{
			Hints:        hints,
			MarkCentered: true,
		})
		if err != nil {
			log.Warn("Unable to extract section text, keeping it empty",
				zap.String("title", s.Title), zap.Error(err))
			content = ""
		}
		m.Sections = append(m.Sections, &manuscript.Section{
			Title:   s.Title,
			Type:    st,
			Content: content,
		})
	}

	for _, img := range book.Images {
		data, mediaType := img.Data, img.MediaType
		if scaled, ok := scaleImage(data, imgCfg, log); ok {
			data, mediaType = scaled, "image/jpeg"
		}
		m.Images = append(m.Images, &manuscript.Image{
			Name:      img.Name,
			MediaType: mediaType,
			Data:      data,
		})
	}
	if book.Cover != nil {
		m.CoverName = book.Cover.Name
	}

	m.Normalize()
	return m
}

// scaleImage shrinks or enlarges raster image data by the configured
// factor. Vector and unreadable images pass through untouched.
func scaleImage(data []byte, cfg *config.ImagesConfig, log *zap.Logger) ([]byte, bool) {
	if cfg.ScaleFactor <= 0 || cfg.ScaleFactor == 1.0 {
		return nil, false
	}
	img, err := images.DecodeImage(data)
	if err != nil {
		log.Debug("Keeping image as is, scaling not possible", zap.Error(err))
		return nil, false
	}
	scaled := images.Scale(img, cfg.ScaleFactor)
	encoded, err := images.EncodeJPEG(scaled, cfg.JPEGQuality)
	if err != nil {
		log.Warn("Unable to re-encode scaled image, keeping original", zap.Error(err))
		return nil, false
	}
	return encoded, true
}
