// Package manifest serializes a page graph into the document consumed by the
// bundler adapter and validates it against an embedded JSON Schema.
package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fulmenhq/pagegraph/pkg/graph"
	"github.com/fulmenhq/pagegraph/pkg/safeio"
	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// SchemaVersion is the document version written by this package.
const SchemaVersion = "1"

//go:embed schemas/manifest.schema.json
var schemaJSON []byte

// ErrInvalidManifest is returned when a document fails schema validation.
var ErrInvalidManifest = errors.New("invalid manifest")

// Output describes where the bundler writes its artifacts.
type Output struct {
	Path       string `json:"path" yaml:"path" toml:"path" mapstructure:"path"`
	Filename   string `json:"filename" yaml:"filename" toml:"filename" mapstructure:"filename"`
	PublicPath string `json:"public_path" yaml:"public_path" toml:"public_path" mapstructure:"public_path"`
}

// DefaultOutput returns the conventional dist layout with content-hashed scripts.
func DefaultOutput() Output {
	return Output{
		Path:       "dist",
		Filename:   "./js/[name].[chunkhash:8].js",
		PublicPath: "/",
	}
}

// Document is the serialized build graph.
type Document struct {
	SchemaVersion string                 `json:"schema_version" yaml:"schema_version" toml:"schema_version"`
	Mode          string                 `json:"mode" yaml:"mode" toml:"mode"`
	Entries       map[string]string      `json:"entries" yaml:"entries" toml:"entries"`
	SharedChunks  []string               `json:"shared_chunks" yaml:"shared_chunks" toml:"shared_chunks"`
	Pages         []graph.PageDescriptor `json:"pages" yaml:"pages" toml:"pages"`
	Rejected      []graph.Rejected       `json:"rejected,omitempty" yaml:"rejected,omitempty" toml:"rejected,omitempty"`
	Output        Output                 `json:"output" yaml:"output" toml:"output"`
	Aliases       map[string]string      `json:"aliases,omitempty" yaml:"aliases,omitempty" toml:"aliases,omitempty"`
}

// FromGraph builds a document from g. Collections are never nil so the
// encoded form always carries every required key.
func FromGraph(g *graph.Graph, out Output, aliases map[string]string) *Document {
	doc := &Document{
		SchemaVersion: SchemaVersion,
		Mode:          string(g.Mode),
		Entries:       make(map[string]string, len(g.Entries)),
		SharedChunks:  append([]string{}, g.SharedChunks...),
		Pages:         append([]graph.PageDescriptor{}, g.Pages...),
		Rejected:      g.Rejected,
		Output:        out,
	}
	for name, path := range g.Entries {
		doc.Entries[name] = path
	}
	if len(aliases) > 0 {
		doc.Aliases = make(map[string]string, len(aliases))
		for k, v := range aliases {
			doc.Aliases[k] = v
		}
	}
	return doc
}

// Format selects the encoding of a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat parses a format name; "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported manifest format %q (want json, yaml or toml)", s)
	}
}

// Encode writes doc to w in the requested format.
func Encode(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(doc)
	default:
		return fmt.Errorf("unsupported manifest format %q", format)
	}
}

// Validate checks JSON document bytes against the embedded schema. Schema
// violations are reported as one error wrapping ErrInvalidManifest.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("%w:\n%s", ErrInvalidManifest, strings.Join(problems, "\n"))
}

// Validate checks the document against the embedded schema.
func (d *Document) Validate() error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return Validate(data)
}

// WriteFile encodes doc and writes it to path, keeping the permissions of an
// existing file.
func WriteFile(path string, doc *Document, format Format) error {
	var buf bytes.Buffer
	if err := Encode(&buf, doc, format); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := safeio.WriteFilePreservePerms(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}
