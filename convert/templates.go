package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"trbk/config"
	"trbk/epub"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Title      string
	Author     string
	Language   string
	Identifier string
	SourceFile string
	FontName   string
	Size       int
}

func buildValues(name config.TemplateFieldName, meta epub.Metadata, srcName, fontName string, size int) Values {
	return Values{
		Context:    string(name),
		Title:      meta.Title,
		Author:     meta.Creator,
		Language:   meta.Language,
		Identifier: meta.Identifier,
		SourceFile: strings.TrimSuffix(filepath.Base(srcName), filepath.Ext(srcName)),
		FontName:   fontName,
		Size:       size,
	}
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
