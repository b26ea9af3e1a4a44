package config

// Specification of cover image resizing mode.
// ENUM(none, keepAR, stretch)
type ImageResizeMode int

// Specification of requested output type.
// ENUM(fountain, docx, html, epub)
type OutputFmt int

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtFountain:
		return ".fountain"
	case OutputFmtDocx:
		return ".docx"
	case OutputFmtHTML:
		return ".html"
	case OutputFmtEpub:
		return ".epub"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}
