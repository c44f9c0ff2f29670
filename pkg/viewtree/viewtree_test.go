package viewtree

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, nil, 0o644))
	}
}

func TestGlobScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"a/b/index.js",
		"a/b/index.art",
		"a/b/index.css",
		"c/d/index.art",
		"e/f/index.js",
		"g/h/index.css",
		"a/b/helper.js",
		"x/y/z/index.art",
		"index.js",
		"node_modules/lib/index.js",
		".hidden/p/index.art",
	)

	units, err := NewGlobScanner(DefaultLayout()).Scan(root)
	require.NoError(t, err)

	want := UnitSet{
		"a/b": {
			Name:       "a/b",
			Dir:        filepath.Join(root, "a", "b"),
			Template:   filepath.Join(root, "a", "b", "index.art"),
			Script:     filepath.Join(root, "a", "b", "index.js"),
			Stylesheet: filepath.Join(root, "a", "b", "index.css"),
		},
		"c/d": {
			Name:     "c/d",
			Dir:      filepath.Join(root, "c", "d"),
			Template: filepath.Join(root, "c", "d", "index.art"),
		},
		"e/f": {
			Name:   "e/f",
			Dir:    filepath.Join(root, "e", "f"),
			Script: filepath.Join(root, "e", "f", "index.js"),
		},
		"x/y/z": {
			Name:     "x/y/z",
			Dir:      filepath.Join(root, "x", "y", "z"),
			Template: filepath.Join(root, "x", "y", "z", "index.art"),
		},
	}
	if diff := cmp.Diff(want, units); diff != "" {
		t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"a/b", "c/d", "e/f", "x/y/z"}, units.Names())
}

func TestGlobScanner_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a/b/index.js", "a/b/index.art", "c/d/index.art")

	scanner := NewGlobScanner(DefaultLayout())
	first, err := scanner.Scan(root)
	require.NoError(t, err)
	second, err := scanner.Scan(root)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.True(t, second.Equal(first))
}

func TestGlobScanner_SeesNewUnits(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a/b/index.art")

	scanner := NewGlobScanner(DefaultLayout())
	before, err := scanner.Scan(root)
	require.NoError(t, err)

	writeFiles(t, root, "blog/index/index.art")
	after, err := scanner.Scan(root)
	require.NoError(t, err)

	assert.False(t, before.Equal(after))
	assert.Contains(t, after, "blog/index")
	assert.NotContains(t, before, "blog/index")
}

func TestGlobScanner_CustomLayoutAndExclude(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a/b/main.html", "a/b/main.ts", "a/b/main.scss", "draft/x/main.html")

	layout := Layout{Basename: "main", TemplateExt: "html", ScriptExt: "ts", StyleExt: "scss"}
	units, err := NewGlobScanner(layout, "draft/**").Scan(root)
	require.NoError(t, err)

	require.Len(t, units, 1)
	unit := units["a/b"]
	assert.True(t, unit.HasTemplate())
	assert.True(t, unit.HasScript())
	assert.Equal(t, filepath.Join(root, "a", "b", "main.scss"), unit.Stylesheet)
}

func TestGlobScanner_IgnoreFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a/b/index.art", "drafts/x/index.art", "old/y/index.js")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("drafts/\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".pagegraphignore"), []byte("old/\n"), 0o644))

	scanner := NewGlobScanner(DefaultLayout())
	units, err := scanner.Scan(root)
	require.NoError(t, err)
	assert.Len(t, units, 3, "ignore files are only honored when enabled")

	scanner.IgnoreFiles = true
	units, err = scanner.Scan(root)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Contains(t, units, "a/b")
}

func TestGlobScanner_UnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	writeFiles(t, root, "a/b/index.art", "locked/x/index.art")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	units, err := NewGlobScanner(DefaultLayout()).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b"}, units.Names())
}

func TestGlobScanner_MissingRoot(t *testing.T) {
	_, err := NewGlobScanner(DefaultLayout()).Scan(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRootNotFound))
}

func TestGlobScanner_RootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "file")
	_, err := NewGlobScanner(DefaultLayout()).Scan(filepath.Join(root, "file"))
	assert.Error(t, err)
}

func TestUnitSet_Equal(t *testing.T) {
	a := UnitSet{"a/b": {Name: "a/b", Script: "/v/a/b/index.js"}}
	b := UnitSet{"a/b": {Name: "a/b", Script: "/v/a/b/index.js"}}
	c := UnitSet{"a/b": {Name: "a/b", Template: "/v/a/b/index.art"}}
	d := UnitSet{"a/b": {Name: "a/b", Script: "/v/a/b/index.js"}, "c/d": {Name: "c/d"}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, d.Equal(a))
	assert.True(t, UnitSet{}.Equal(nil))
}

func TestManifestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	manifestPath := filepath.Join(t.TempDir(), "units.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`units:
  - name: a/b
    template: a/b/index.art
    script: a/b/index.js
    stylesheet: a/b/index.css
  - name: c/d
    template: c/d/index.art
  - name: only/style
    stylesheet: only/style/index.css
`), 0o644))

	units, err := NewManifestScanner(manifestPath).Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"a/b", "c/d"}, units.Names())
	assert.Equal(t, filepath.Join(root, "a", "b", "index.js"), units["a/b"].Script)
	assert.Equal(t, filepath.Join(root, "c", "d", "index.art"), units["c/d"].Template)
	assert.False(t, units["c/d"].HasScript())
}

func TestManifestScanner_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"escapes root", "units:\n  - name: a/b\n    script: ../outside/index.js\n"},
		{"missing name", "units:\n  - script: a/b/index.js\n"},
		{"duplicate", "units:\n  - name: a/b\n    script: a/b/index.js\n  - name: a/b\n    script: a/b/index.js\n"},
		{"not yaml", "units: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manifestPath := filepath.Join(t.TempDir(), "units.yaml")
			require.NoError(t, os.WriteFile(manifestPath, []byte(tt.content), 0o644))
			_, err := NewManifestScanner(manifestPath).Scan(t.TempDir())
			assert.Error(t, err)
		})
	}
}

func TestManifestScanner_ParentRelativePath(t *testing.T) {
	project := t.TempDir()
	root := filepath.Join(project, "views")
	work := filepath.Join(project, "tools")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.MkdirAll(work, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "units.yaml"),
		[]byte("units:\n  - name: a/b\n    script: a/b/index.js\n"), 0o644))
	chdir(t, work)

	units, err := (&ManifestScanner{Path: "../units.yaml"}).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b"}, units.Names())
}

func TestManifestScanner_MissingFile(t *testing.T) {
	_, err := NewManifestScanner(filepath.Join(t.TempDir(), "absent.yaml")).Scan(t.TempDir())
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
