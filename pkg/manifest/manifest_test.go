package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/fulmenhq/pagegraph/pkg/graph"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleGraph() *graph.Graph {
	return &graph.Graph{
		Root:         "/v",
		Mode:         graph.ModeProduction,
		Entries:      graph.EntryMap{"a/b": "/v/a/b/index.js", "basic": "./src/js/default.js"},
		SharedChunks: []string{"common", "vendor", "basic"},
		Pages: []graph.PageDescriptor{
			{Page: "a/b", Filename: "a/b.html", Template: "/v/a/b/index.art", Inject: "body",
				Chunks: []string{"common", "vendor", "basic", "a/b"}, ChunksSortMode: "manual"},
			{Page: "c/d", Filename: "c/d.html", Template: "/v/c/d/index.art", Inject: "body"},
		},
	}
}

func sampleDocument() *Document {
	return FromGraph(sampleGraph(), DefaultOutput(), map[string]string{"@": "./src"})
}

func TestFromGraph(t *testing.T) {
	g := sampleGraph()
	doc := FromGraph(g, DefaultOutput(), nil)

	assert.Equal(t, SchemaVersion, doc.SchemaVersion)
	assert.Equal(t, "production", doc.Mode)
	assert.Equal(t, map[string]string(g.Entries), doc.Entries)
	assert.Len(t, doc.Pages, 2)
	assert.Nil(t, doc.Aliases)
	assert.Equal(t, "dist", doc.Output.Path)

	doc.Entries["x/y"] = "mutated"
	assert.NotContains(t, g.Entries, "x/y")
}

func TestFromGraph_EmptyGraphIsValid(t *testing.T) {
	doc := FromGraph(&graph.Graph{Mode: graph.ModeDevelopment}, DefaultOutput(), nil)
	require.NotNil(t, doc.Entries)
	require.NotNil(t, doc.SharedChunks)
	require.NotNil(t, doc.Pages)
	assert.NoError(t, doc.Validate())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yml": FormatYAML, "yaml": FormatYAML, "toml": FormatTOML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestEncode_JSONValidates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleDocument(), FormatJSON))

	assert.NoError(t, Validate(buf.Bytes()))
	assert.Contains(t, buf.String(), `"chunks_sort_mode": "manual"`)
	assert.Contains(t, buf.String(), `"filename": "./js/[name].[chunkhash:8].js"`)
}

func TestEncode_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleDocument(), FormatYAML))

	var decoded Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleDocument().Entries, decoded.Entries)
	assert.Equal(t, sampleDocument().Pages, decoded.Pages)
	assert.Equal(t, "./src", decoded.Aliases["@"])
}

func TestEncode_TOML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleDocument(), FormatTOML))

	var decoded Document
	require.NoError(t, toml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "/v/a/b/index.js", decoded.Entries["a/b"])
	require.Len(t, decoded.Pages, 2)
	assert.Equal(t, []string{"common", "vendor", "basic", "a/b"}, decoded.Pages[0].Chunks)
	assert.Empty(t, decoded.Pages[1].Chunks)
	assert.Equal(t, "/", decoded.Output.PublicPath)
}

func TestEncode_UnknownFormat(t *testing.T) {
	assert.Error(t, Encode(&bytes.Buffer{}, sampleDocument(), Format("xml")))
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{"missing pages", func(m map[string]any) { delete(m, "pages") }},
		{"unknown mode", func(m map[string]any) { m["mode"] = "staging" }},
		{"three segment page", func(m map[string]any) {
			page := m["pages"].([]any)[1].(map[string]any)
			page["page"] = "a/b/c"
		}},
		{"chunks without sort mode", func(m map[string]any) {
			page := m["pages"].([]any)[0].(map[string]any)
			delete(page, "chunks_sort_mode")
		}},
		{"unknown top-level key", func(m map[string]any) { m["extra"] = true }},
	}

	base, err := json.Marshal(sampleDocument())
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m map[string]any
			require.NoError(t, json.Unmarshal(base, &m))
			tt.mutate(m)
			data, err := json.Marshal(m)
			require.NoError(t, err)

			err = Validate(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidManifest), "got %v", err)
		})
	}
}

func TestValidate_MalformedJSON(t *testing.T) {
	err := Validate([]byte("{not json"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidManifest))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.json")
	require.NoError(t, WriteFile(path, sampleDocument(), FormatJSON))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NoError(t, Validate(data))
}

func TestWriteFile_PreservesPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not preserved on windows")
	}
	path := filepath.Join(t.TempDir(), "pages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, WriteFile(path, sampleDocument(), FormatYAML))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
