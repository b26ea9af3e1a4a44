package manuscript

import (
	"strings"
	"time"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"go.uber.org/zap"
)

// readingWPM is the words-per-minute rate used for reading time estimates.
const readingWPM = 220

// SectionStats holds basic counters for a single section.
type SectionStats struct {
	Title     string
	Type      SectionType
	Words     int
	Sentences int
}

// Stats holds counters for the whole manuscript.
type Stats struct {
	Sections    []SectionStats
	Words       int
	Sentences   int
	ReadingTime time.Duration
}

// Counter segments text into sentences and counts words. Tokenizer models
// are language specific; only English training data ships with the program,
// other languages degrade to the English model which is close enough for
// counting purposes.
type Counter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

func NewCounter(lang string, log *zap.Logger) *Counter {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		log.Warn("Unable to load sentence tokenizer, sentence counts will be zero", zap.Error(err))
		return &Counter{}
	}
	if lang != "" && !strings.HasPrefix(strings.ToLower(lang), "en") {
		log.Debug("No sentence tokenizer model for language, using English", zap.String("language", lang))
	}
	return &Counter{tokenizer: tokenizer}
}

// Collect computes per-section and total statistics. Only textual matter is
// counted, cover and toc sections are skipped.
func (c *Counter) Collect(m *Manuscript) *Stats {
	stats := &Stats{}
	for _, s := range m.Sections {
		if s.Type == SectionTypeCover || s.Type == SectionTypeToc {
			continue
		}
		ss := SectionStats{
			Title: s.Title,
			Type:  s.Type,
			Words: len(strings.Fields(stripMarkup(s.Content))),
		}
		if c.tokenizer != nil {
			ss.Sentences = len(c.tokenizer.Tokenize(stripMarkup(s.Content)))
		}
		stats.Sections = append(stats.Sections, ss)
		stats.Words += ss.Words
		stats.Sentences += ss.Sentences
	}
	stats.ReadingTime = time.Duration(float64(stats.Words)/readingWPM*60) * time.Second
	return stats
}

// stripMarkup removes the inline markers of our markdown dialect so they do
// not inflate word counts. Link targets still count as a word each, which is
// good enough for an estimate.
func stripMarkup(text string) string {
	replacer := strings.NewReplacer("**", "", "__", "", "![", "", "[", "", "](", " ", ")", "")
	return replacer.Replace(text)
}
