package epub

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"scribe/config"
	"scribe/manuscript"
	"scribe/utils/images"
)

const generatedCoverName = "cover.jpg"

// ensureCover makes sure the manuscript has a usable cover image before
// packaging. An existing cover is resized per configuration, a missing one
// is generated from the configured artwork or the built-in placeholder.
func ensureCover(m *manuscript.Manuscript, cfg *config.ImagesConfig, defaultSVG []byte, log *zap.Logger) error {
	if cover := m.Cover(); cover != nil {
		return resizeCover(cover, cfg, log)
	}
	if !cfg.Cover.Generate {
		return nil
	}

	data := defaultSVG
	if cfg.Cover.DefaultImagePath != "" {
		var err error
		data, err = os.ReadFile(cfg.Cover.DefaultImagePath)
		if err != nil {
			return fmt.Errorf("unable to read default cover: %w", err)
		}
	}

	img, err := coverImage(data, cfg)
	if err != nil {
		return err
	}
	img = images.ResizeCover(img, cfg.Cover.Resize, cfg.Cover.Width, cfg.Cover.Height)

	encoded, err := images.EncodeJPEG(img, cfg.JPEGQuality)
	if err != nil {
		return err
	}

	log.Debug("Generated cover image",
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))

	m.Images = append(m.Images, &manuscript.Image{
		Name:      generatedCoverName,
		MediaType: "image/jpeg",
		Data:      encoded,
	})
	m.CoverName = generatedCoverName
	return nil
}

func coverImage(data []byte, cfg *config.ImagesConfig) (image.Image, error) {
	if isSVG(data) {
		img, err := images.RasterizeSVGToImage(data, cfg.Cover.Width, cfg.Cover.Height)
		if err != nil {
			return nil, fmt.Errorf("unable to rasterize cover: %w", err)
		}
		return img, nil
	}
	return images.DecodeImage(data)
}

func isSVG(data []byte) bool {
	if t, err := filetype.Match(data); err == nil && t.MIME.Value != "" {
		return t.MIME.Value == "image/svg+xml"
	}
	return bytes.Contains(data[:min(len(data), 1024)], []byte("<svg"))
}

func resizeCover(cover *manuscript.Image, cfg *config.ImagesConfig, log *zap.Logger) error {
	if cfg.Cover.Resize == config.ImageResizeModeNone {
		return nil
	}
	img, err := images.DecodeImage(cover.Data)
	if err != nil {
		// leave unreadable cover data as is, the reader may still cope
		log.Warn("Unable to decode cover image, keeping original", zap.Error(err))
		return nil
	}
	resized := images.ResizeCover(img, cfg.Cover.Resize, cfg.Cover.Width, cfg.Cover.Height)
	if resized == img {
		return nil
	}
	encoded, err := images.EncodeJPEG(resized, cfg.JPEGQuality)
	if err != nil {
		return err
	}
	cover.Data = encoded
	cover.MediaType = "image/jpeg"
	return nil
}
