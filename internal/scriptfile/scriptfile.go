// Package scriptfile loads scripted-stream fixtures from YAML or JSON.
//
//	echo: true
//	base_delay: 10ms
//	chunks:
//	  - text: "Welcome!\n"
//	  - delay: 50ms
//	    text: "Password? "
//	  - prompt: true
//	  - text: "\r"
//	  - text: "Correct!\n"
package scriptfile

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"procsim/pkg/scripted"
)

// Duration is a time.Duration written as a Go duration string ("150ms").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", node.Line, err)
	}
	return d.set(s)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.set(s)
}

func (d *Duration) set(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Entry is one chunk of a fixture. Exactly one of Text, Base64 or Prompt is
// used.
type Entry struct {
	Delay  Duration `yaml:"delay" json:"delay"`
	Text   string   `yaml:"text" json:"text"`
	Base64 string   `yaml:"base64" json:"base64"`
	Prompt bool     `yaml:"prompt" json:"prompt"`
}

// File is a parsed fixture.
type File struct {
	Name      string   `yaml:"name" json:"name"`
	Echo      bool     `yaml:"echo" json:"echo"`
	BaseDelay Duration `yaml:"base_delay" json:"base_delay"`
	Inputs    []string `yaml:"inputs" json:"inputs"`
	Chunks    []Entry  `yaml:"chunks" json:"chunks"`
}

// Load reads a fixture; the format follows the file extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	format := detectFormat(path)
	if format == "" {
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}
	file, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if file.Name == "" {
		file.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return file, nil
}

// Parse decodes data in the given format, "yaml" or "json", and validates it.
func Parse(data []byte, format string) (*File, error) {
	var file File
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q, use \"yaml\" or \"json\"", format)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate checks that every entry is well formed.
func (f *File) Validate() error {
	if f.BaseDelay < 0 {
		return fmt.Errorf("base_delay must not be negative")
	}
	for i, e := range f.Chunks {
		switch {
		case e.Delay < 0:
			return fmt.Errorf("chunk %d: delay must not be negative", i)
		case e.Prompt && (e.Text != "" || e.Base64 != "" || e.Delay != 0):
			return fmt.Errorf("chunk %d: a prompt carries no text and no delay", i)
		case e.Text != "" && e.Base64 != "":
			return fmt.Errorf("chunk %d: text and base64 are exclusive", i)
		case e.Base64 != "":
			if _, err := base64.StdEncoding.DecodeString(e.Base64); err != nil {
				return fmt.Errorf("chunk %d: invalid base64: %w", i, err)
			}
		}
	}
	return nil
}

// Script converts the entries into a scripted.Script.
func (f *File) Script() scripted.Script {
	script := make(scripted.Script, 0, len(f.Chunks))
	for _, e := range f.Chunks {
		switch {
		case e.Prompt:
			script = append(script, scripted.Prompt())
		case e.Base64 != "":
			payload, _ := base64.StdEncoding.DecodeString(e.Base64)
			script = append(script, scripted.Bytes(time.Duration(e.Delay), payload))
		default:
			script = append(script, scripted.Text(time.Duration(e.Delay), e.Text))
		}
	}
	return script
}

// Options returns the stream options the fixture asks for.
func (f *File) Options() scripted.Options {
	return scripted.Options{
		Echo:      f.Echo,
		BaseDelay: time.Duration(f.BaseDelay),
	}
}

func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return ""
	}
}
