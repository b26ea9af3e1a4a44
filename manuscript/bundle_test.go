package manuscript

import (
	"os"
	"path/filepath"
	"testing"
)

// minimal JPEG header, enough for media type sniffing
var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 0x4a, 0x46, 0x49, 0x46, 0x00}

func sampleManuscript() *Manuscript {
	m := &Manuscript{
		Title:    "Sample",
		Author:   "Nobody",
		Language: "en",
		Sections: []*Section{
			{Title: "One", Type: SectionTypeChapter, Content: "First chapter."},
			{Title: "Two", Type: SectionTypeChapter, Content: "Second chapter."},
		},
		Images: []*Image{
			{Name: "pic.jpg", MediaType: "image/jpeg", Data: jpegHeader},
		},
	}
	m.Normalize()
	return m
}

func TestBundleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := sampleManuscript()

	if err := SaveBundle(m, dir); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}

	loaded, err := LoadBundle(dir)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}

	if loaded.Title != m.Title || loaded.Author != m.Author || loaded.Language != m.Language {
		t.Errorf("metadata mismatch: %+v", loaded)
	}
	if len(loaded.Sections) != len(m.Sections) {
		t.Fatalf("got %d sections, want %d", len(loaded.Sections), len(m.Sections))
	}
	for i, s := range loaded.Sections {
		if s.Content != m.Sections[i].Content {
			t.Errorf("section %d content = %q, want %q", i, s.Content, m.Sections[i].Content)
		}
		if s.Type != m.Sections[i].Type {
			t.Errorf("section %d type = %s, want %s", i, s.Type, m.Sections[i].Type)
		}
	}
	if len(loaded.Images) != 1 || string(loaded.Images[0].Data) != string(jpegHeader) {
		t.Errorf("images not restored: %+v", loaded.Images)
	}
}

func TestLoadBundleExtraImages(t *testing.T) {
	dir := t.TempDir()
	m := sampleManuscript()
	if err := SaveBundle(m, dir); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}

	// drop files into images/ behind the metadata's back
	for _, name := range []string{"extra10.jpg", "extra2.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, imagesDir, name), jpegHeader, 0644); err != nil {
			t.Fatal(err)
		}
	}

	loaded, err := LoadBundle(dir)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if len(loaded.Images) != 3 {
		t.Fatalf("got %d images, want 3", len(loaded.Images))
	}
	// listed image first, extras appended naturally sorted
	wantNames := []string{"pic.jpg", "extra2.jpg", "extra10.jpg"}
	for i, want := range wantNames {
		if loaded.Images[i].Name != want {
			t.Errorf("image %d = %q, want %q", i, loaded.Images[i].Name, want)
		}
	}
	if loaded.Images[1].MediaType != "image/jpeg" {
		t.Errorf("extra image media type = %q, want sniffed image/jpeg", loaded.Images[1].MediaType)
	}
}

func TestLoadBundleUnknownMediaType(t *testing.T) {
	dir := t.TempDir()
	m := sampleManuscript()
	if err := SaveBundle(m, dir); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, imagesDir, "blob.bin"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadBundle(dir)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	blob := loaded.ImageByName("blob.bin")
	if blob == nil {
		t.Fatal("extra file not picked up")
	}
	if blob.MediaType != "application/octet-stream" {
		t.Errorf("media type = %q, want application/octet-stream", blob.MediaType)
	}
}

func TestLoadBundleRejectsUnsafeNames(t *testing.T) {
	dir := t.TempDir()
	m := sampleManuscript()
	if err := SaveBundle(m, dir); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}

	bad := []byte("title: x\nsections:\n  - id: s\n    title: Evil\n    file: ../../evil.md\n    type: chapter\n")
	if err := os.WriteFile(filepath.Join(dir, metaFileName), bad, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadBundle(dir); err == nil {
		t.Error("LoadBundle accepted a file name escaping the bundle")
	}
}

func TestLoadBundleMissing(t *testing.T) {
	if _, err := LoadBundle(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing bundle")
	}
}

func TestIsSafeBundleName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"chapter.md", true},
		{"sub/chapter.md", true},
		{"", false},
		{"../escape.md", false},
		{"a/../../b.md", false},
		{"/etc/passwd", false},
	}
	for _, c := range cases {
		if got := isSafeBundleName(c.name); got != c.want {
			t.Errorf("isSafeBundleName(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}
