package manuscript

import (
	"bytes"
	"fmt"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"scribe/config"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context  string
	Title    string
	Author   string
	Language string
	Format   string
	Sections int
}

// ExpandTemplate expands a user supplied template field with manuscript
// metadata. Used for output file naming.
func ExpandTemplate(m *Manuscript, name config.TemplateFieldName, field string, format config.OutputFmt) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:  string(name),
		Title:    m.Title,
		Author:   m.Author,
		Language: m.Language,
		Format:   format.String(),
		Sections: len(m.Sections),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
