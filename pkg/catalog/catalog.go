// Package catalog lists the document templates a user can pick from.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/aretw0/tracescribe/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

var descriptors = mustLoad(templatesYAML)

// List returns the templates in display order. The returned slice is a copy.
func List() []domain.TemplateDescriptor {
	out := make([]domain.TemplateDescriptor, len(descriptors))
	for i, d := range descriptors {
		d.Sections = append([]string(nil), d.Sections...)
		out[i] = d
	}
	return out
}

// Lookup returns the descriptor for id.
func Lookup(id domain.TemplateID) (domain.TemplateDescriptor, bool) {
	for _, d := range descriptors {
		if d.ID == id {
			d.Sections = append([]string(nil), d.Sections...)
			return d, true
		}
	}
	return domain.TemplateDescriptor{}, false
}

// Markdown renders the catalog as a markdown document for terminal display.
func Markdown() string {
	var b strings.Builder
	b.WriteString("# Templates\n\n")
	for _, d := range descriptors {
		fmt.Fprintf(&b, "## %s `%s`\n\n%s\n\n", d.DisplayName, d.ID, d.Description)
		for _, s := range d.Sections {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// mustLoad decodes the embedded catalog and checks it against the compiled template set.
func mustLoad(data []byte) []domain.TemplateDescriptor {
	list, err := parse(data)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return list
}

func parse(data []byte) ([]domain.TemplateDescriptor, error) {
	var list []domain.TemplateDescriptor
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}

	ids := domain.TemplateIDs()
	if len(list) != len(ids) {
		return nil, fmt.Errorf("expected %d templates, found %d", len(ids), len(list))
	}
	for i, d := range list {
		if d.ID != ids[i] {
			return nil, fmt.Errorf("template %d is %q, expected %q", i, d.ID, ids[i])
		}
		if d.DisplayName == "" || d.Description == "" {
			return nil, fmt.Errorf("template %q is missing display name or description", d.ID)
		}
	}
	return list, nil
}
