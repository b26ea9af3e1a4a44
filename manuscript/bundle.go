package manuscript

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	yaml "gopkg.in/yaml.v3"
)

// On disk a manuscript is a "bundle" directory:
//
//	manuscript.yaml   metadata and ordered section list
//	sections/*.md     one markdown file per section
//	images/*          binary media
//
// manuscript.yaml is authoritative for section order; section files sort
// naturally only for human convenience.

const (
	metaFileName = "manuscript.yaml"
	sectionsDir  = "sections"
	imagesDir    = "images"
)

// SaveBundle writes the manuscript as a bundle directory. Existing section
// and image files in the bundle are replaced, never merged.
func SaveBundle(m *Manuscript, dir string) error {
	for _, sub := range []string{sectionsDir, imagesDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return fmt.Errorf("unable to create bundle directory: %w", err)
		}
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("unable to marshal manuscript metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metaFileName), data, 0644); err != nil {
		return fmt.Errorf("unable to write %s: %w", metaFileName, err)
	}

	for _, s := range m.Sections {
		name := filepath.Join(dir, sectionsDir, s.FileName)
		if err := os.WriteFile(name, []byte(s.Content), 0644); err != nil {
			return fmt.Errorf("unable to write section %s: %w", s.FileName, err)
		}
	}

	for _, img := range m.Images {
		name := filepath.Join(dir, imagesDir, img.Name)
		if err := os.WriteFile(name, img.Data, 0644); err != nil {
			return fmt.Errorf("unable to write image %s: %w", img.Name, err)
		}
	}
	return nil
}

// LoadBundle reads a manuscript bundle from a directory.
func LoadBundle(dir string) (*Manuscript, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", metaFileName, err)
	}

	m := &Manuscript{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", metaFileName, err)
	}

	for _, s := range m.Sections {
		if s.FileName == "" {
			return nil, fmt.Errorf("section %q has no file name", s.Title)
		}
		if !isSafeBundleName(s.FileName) {
			return nil, fmt.Errorf("section file name %q escapes the bundle", s.FileName)
		}
		content, err := os.ReadFile(filepath.Join(dir, sectionsDir, s.FileName))
		if err != nil {
			return nil, fmt.Errorf("unable to read section %s: %w", s.FileName, err)
		}
		s.Content = string(content)
	}

	// images listed in metadata come first in their listed order, anything
	// else found on disk is appended naturally sorted
	known := make(map[string]*Image, len(m.Images))
	for _, img := range m.Images {
		known[img.Name] = img
	}

	entries, err := os.ReadDir(filepath.Join(dir, imagesDir))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("unable to read bundle images: %w", err)
	}

	var extra []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := known[e.Name()]; !ok {
			extra = append(extra, e.Name())
		}
	}
	sort.Sort(natural.StringSlice(extra))
	for _, name := range extra {
		m.Images = append(m.Images, &Image{Name: name})
	}

	for _, img := range m.Images {
		data, err := os.ReadFile(filepath.Join(dir, imagesDir, img.Name))
		if err != nil {
			return nil, fmt.Errorf("unable to read image %s: %w", img.Name, err)
		}
		img.Data = data
		if img.MediaType == "" {
			if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
				img.MediaType = kind.MIME.Value
			} else {
				img.MediaType = "application/octet-stream"
			}
		}
	}
	return m, nil
}

func isSafeBundleName(name string) bool {
	if name == "" || filepath.IsAbs(name) {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
