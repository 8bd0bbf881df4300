package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// section is one key-value block of the configuration file. Key order is kept
// because the labeled channel list is ordered by appearance.
type section struct {
	name   string
	keys   []string
	values map[string]string
}

func newSection(name string) *section {
	return &section{name: name, values: make(map[string]string)}
}

func (s *section) set(key, value string) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *section) get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

// str returns the trimmed value of key, or fallback when the key is absent or blank.
func (s *section) str(key, fallback string) string {
	if v, ok := s.get(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return fallback
}

type rawConfig struct {
	sections map[string]*section
}

func (r *rawConfig) section(name string) *section {
	return r.sections[name]
}

func (r *rawConfig) add(s *section) {
	r.sections[s.name] = s
}

// Format identifies the syntax of a configuration file.
type Format string

const (
	FormatINI  Format = "ini"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the parser from the file extension; anything that is not
// YAML is read as INI.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatINI
	}
}

func readRaw(data []byte, format Format) (*rawConfig, error) {
	switch format {
	case FormatYAML:
		return readYAML(data)
	default:
		return readINI(data)
	}
}

func readINI(data []byte) (*rawConfig, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		IgnoreInlineComment:        true,
		KeyValueDelimiters:         "=:",
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse INI: %w", err)
	}

	raw := &rawConfig{sections: make(map[string]*section)}
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection && len(sec.Keys()) == 0 {
			continue
		}
		s := newSection(sec.Name())
		for _, key := range sec.Keys() {
			s.set(key.Name(), dedentLines(key.Value()))
		}
		raw.add(s)
	}
	return raw, nil
}

// dedentLines strips the indentation of continuation lines, matching how
// Python's configparser reads multi-line values.
func dedentLines(v string) string {
	if !strings.Contains(v, "\n") {
		return v
	}
	lines := strings.Split(v, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

// readYAML accepts the same sections as the INI file, written as top-level
// mappings. Section names are upper-cased so `gemini:` and `GEMINI:` both work;
// keys stay case-sensitive. A sequence value is joined into a comma list.
func readYAML(data []byte) (*rawConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	raw := &rawConfig{sections: make(map[string]*section)}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return raw, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("YAML config must be a mapping of sections (line %d)", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		name := strings.ToUpper(root.Content[i].Value)
		body := root.Content[i+1]
		s := newSection(name)

		switch body.Kind {
		case yaml.MappingNode:
		case yaml.ScalarNode:
			if body.Tag == "!!null" {
				raw.add(s)
				continue
			}
			return nil, fmt.Errorf("section %s must be a mapping (line %d)", name, body.Line)
		default:
			return nil, fmt.Errorf("section %s must be a mapping (line %d)", name, body.Line)
		}

		for j := 0; j+1 < len(body.Content); j += 2 {
			key := body.Content[j].Value
			value, err := yamlValue(body.Content[j+1])
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, key, err)
			}
			s.set(key, value)
		}
		raw.add(s)
	}
	return raw, nil
}

func yamlValue(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "", nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return "", fmt.Errorf("nested values are not supported (line %d)", item.Line)
			}
			items = append(items, item.Value)
		}
		return strings.Join(items, ", "), nil
	default:
		return "", fmt.Errorf("unsupported value (line %d)", n.Line)
	}
}
