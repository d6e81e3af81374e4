package storage_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyguide.cvdemos/pkg/storage"
)

var formats = []string{"doc.yml", "doc.yaml", "doc.xml", "doc.yml.gz", "doc.xml.gz"}

func writeSample(t *testing.T, path string) {
	t.Helper()

	w, err := storage.Create(path)
	require.NoError(t, err)

	require.NoError(t, w.WriteInt("iterationNr", 100))
	require.NoError(t, w.WriteStrings("strings", []string{"sample image", "Awesomeness", "/samples/baboon.jpg"}))
	require.NoError(t, w.BeginMap("Mapping"))
	require.NoError(t, w.WriteInt("One", 1))
	require.NoError(t, w.WriteInt("Two", 2))
	require.NoError(t, w.EndMap())
	require.NoError(t, w.WriteMat("R", storage.Eye(storage.U8, 3)))
	require.NoError(t, w.WriteMat("T", storage.Zeros(storage.F64, 3, 1)))
	require.NoError(t, w.WriteReal("pi", math.Pi))
	require.NoError(t, w.WriteString("numeric", "100"))
	require.NoError(t, w.WriteString("blank", ""))
	require.NoError(t, w.WriteStrings("nothing", nil))
	require.NoError(t, w.Release())
}

func TestRoundTrip_AllFormats(t *testing.T) {
	for _, name := range formats {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			writeSample(t, path)

			r, err := storage.Open(path)
			require.NoError(t, err)
			require.True(t, r.IsOpened())

			assert.Equal(t, 100, r.Get("iterationNr").Int())
			assert.Equal(t, storage.Int, r.Get("iterationNr").Type())

			items, err := r.Get("strings").Elements()
			require.NoError(t, err)
			got := make([]string, 0, len(items))
			for _, it := range items {
				got = append(got, it.String())
			}
			assert.Equal(t, []string{"sample image", "Awesomeness", "/samples/baboon.jpg"}, got)

			mapping := r.Get("Mapping")
			assert.Equal(t, storage.Map, mapping.Type())
			assert.Equal(t, []string{"One", "Two"}, mapping.Keys())
			assert.Equal(t, 2, mapping.Get("Two").Int())
			assert.Equal(t, 1, mapping.Get("One").Int())

			rm, err := r.Get("R").Mat()
			require.NoError(t, err)
			assert.True(t, rm.Equal(storage.Eye(storage.U8, 3)), "R = %v", rm)

			tm, err := r.Get("T").Mat()
			require.NoError(t, err)
			assert.True(t, tm.Equal(storage.Zeros(storage.F64, 3, 1)), "T = %v", tm)
			rows, cols := tm.Dims()
			assert.Equal(t, 3, rows)
			assert.Equal(t, 1, cols)

			assert.Equal(t, math.Pi, r.Get("pi").Real())
			assert.Equal(t, storage.String, r.Get("numeric").Type())
			assert.Equal(t, "100", r.Get("numeric").String())
			assert.Equal(t, storage.String, r.Get("blank").Type())
			assert.Equal(t, "", r.Get("blank").String())

			empty, err := r.Get("nothing").Elements()
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestElements_NotASequence(t *testing.T) {
	for _, name := range []string{"doc.yml", "doc.xml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			writeSample(t, path)

			r, err := storage.Open(path)
			require.NoError(t, err)

			_, err = r.Get("Mapping").Elements()
			require.ErrorIs(t, err, storage.ErrShapeMismatch)

			var shape *storage.ShapeError
			require.ErrorAs(t, err, &shape)
			assert.Equal(t, "Mapping", shape.Key)
			assert.Equal(t, storage.Seq, shape.Want)
			assert.Equal(t, storage.Map, shape.Got)

			_, err = r.Get("iterationNr").Elements()
			require.ErrorIs(t, err, storage.ErrShapeMismatch)

			_, err = r.Get("missing").Elements()
			require.ErrorIs(t, err, storage.ErrShapeMismatch)
		})
	}
}

func TestMissingKeys_ReadAsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yml")
	writeSample(t, path)

	r, err := storage.Open(path)
	require.NoError(t, err)

	n := r.Get("NonExisting")
	assert.True(t, n.Empty())
	assert.Equal(t, 0, n.Int())
	assert.Equal(t, 0.0, n.Real())
	assert.Equal(t, "", n.String())
	assert.True(t, n.Get("deeper").Empty())
	assert.Equal(t, "NonExisting.deeper", n.Get("deeper").Name())

	m, err := n.Mat()
	require.NoError(t, err)
	assert.True(t, m.Empty())
}

func TestScalarConversions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yml")

	w, err := storage.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteReal("half", 2.5))
	require.NoError(t, w.WriteReal("whole", 4))
	require.NoError(t, w.WriteString("word", "hello"))
	require.NoError(t, w.Release())

	r, err := storage.Open(path)
	require.NoError(t, err)

	assert.Equal(t, 2, r.Get("half").Int(), "reals round half to even")
	assert.Equal(t, storage.Real, r.Get("whole").Type())
	assert.Equal(t, 4.0, r.Get("whole").Real())
	assert.Equal(t, 0, r.Get("word").Int())
	assert.Equal(t, "", r.Get("half").String())
}

func TestOpen_Failures(t *testing.T) {
	dir := t.TempDir()

	_, err := storage.Open(filepath.Join(dir, "missing.yml"))
	require.ErrorIs(t, err, storage.ErrOpen)

	_, err = storage.Open(filepath.Join(dir, "file.txt"))
	require.ErrorIs(t, err, storage.ErrOpen)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("- just\n- a list\n"), 0o600))
	_, err = storage.Open(bad)
	require.ErrorIs(t, err, storage.ErrFormat)

	badXML := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(badXML, []byte("<other><a>1</a></other>"), 0o600))
	_, err = storage.Open(badXML)
	require.ErrorIs(t, err, storage.ErrFormat)

	notGzip := filepath.Join(dir, "plain.yml.gz")
	require.NoError(t, os.WriteFile(notGzip, []byte("a: 1\n"), 0o600))
	_, err = storage.Open(notGzip)
	require.ErrorIs(t, err, storage.ErrFormat)
}

func TestCreate_Failures(t *testing.T) {
	dir := t.TempDir()

	_, err := storage.Create(filepath.Join(dir, "no", "such", "dir", "out.yml"))
	require.ErrorIs(t, err, storage.ErrOpen)

	_, err = storage.Create(filepath.Join(dir, "out.json"))
	require.ErrorIs(t, err, storage.ErrOpen)

	sub := filepath.Join(dir, "taken.yml")
	require.NoError(t, os.Mkdir(sub, 0o755))
	_, err = storage.Create(sub)
	require.ErrorIs(t, err, storage.ErrOpen)
}

func TestWriter_Structure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yml")

	w, err := storage.Create(path)
	require.NoError(t, err)

	require.ErrorIs(t, w.WriteInt("", 1), storage.ErrKey)
	require.ErrorIs(t, w.WriteInt("1abc", 1), storage.ErrKey)
	require.ErrorIs(t, w.WriteInt("has space", 1), storage.ErrKey)
	require.NoError(t, w.WriteInt("a", 1))
	require.ErrorIs(t, w.WriteInt("a", 2), storage.ErrKey)

	require.ErrorIs(t, w.EndMap(), storage.ErrUnbalanced)
	require.NoError(t, w.BeginSeq("items"))
	require.ErrorIs(t, w.WriteInt("named", 1), storage.ErrKey)
	require.ErrorIs(t, w.EndMap(), storage.ErrUnbalanced)
	require.ErrorIs(t, w.Release(), storage.ErrUnbalanced)
	require.NoError(t, w.EndSeq())

	require.NoError(t, w.Release())
	require.ErrorIs(t, w.Release(), storage.ErrReleased)
	require.ErrorIs(t, w.WriteInt("b", 1), storage.ErrReleased)
}

func TestRelease_FileLayout(t *testing.T) {
	dir := t.TempDir()

	yml := filepath.Join(dir, "doc.yml")
	writeSample(t, yml)
	data, err := os.ReadFile(yml)
	require.NoError(t, err)
	assert.Contains(t, string(data), "%YAML:1.0\n---\n")
	assert.Contains(t, string(data), "!!opencv-matrix")

	xmlPath := filepath.Join(dir, "doc.xml")
	writeSample(t, xmlPath)
	data, err = os.ReadFile(xmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<opencv_storage>")
	assert.Contains(t, string(data), `<R type_id="opencv-matrix">`)
	assert.Contains(t, string(data), "<_>sample image</_>")
	assert.Contains(t, string(data), `<numeric>"100"</numeric>`)

	gz := filepath.Join(dir, "doc.xml.gz")
	writeSample(t, gz)
	data, err = os.ReadFile(gz)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 2)
	assert.Equal(t, []byte{0x1f, 0x8b}, data[:2])

	info, err := os.Stat(yml)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestXMLText_KeepsQuotesEscapesMarkup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "text.xml")

	w, err := storage.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteString("numeric", "100"))
	require.NoError(t, w.WriteString("markup", `a<b & "c">d`))
	require.NoError(t, w.Release())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<numeric>"100"</numeric>`)
	assert.Contains(t, string(data), `<markup>a&lt;b &amp; "c"&gt;d</markup>`)
	assert.NotContains(t, string(data), "&#34;")

	r, err := storage.Open(path)
	require.NoError(t, err)
	defer r.Release()
	assert.Equal(t, "100", r.Get("numeric").String())
	assert.Equal(t, `a<b & "c">d`, r.Get("markup").String())
}

func TestMat_Saturates(t *testing.T) {
	m, err := storage.NewMat(storage.U8, 1, 3, []float64{-4, 127.5, 300})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.At(0, 0))
	assert.Equal(t, 128.0, m.At(0, 1))
	assert.Equal(t, 255.0, m.At(0, 2))

	_, err = storage.NewMat('x', 1, 1, []float64{0})
	require.Error(t, err)
	_, err = storage.NewMat(storage.F64, 2, 2, []float64{0})
	require.Error(t, err)
}

func TestMat_String(t *testing.T) {
	assert.Equal(t, "[  1,   0;\n   0,   1]", storage.Eye(storage.U8, 2).String())
	assert.Equal(t, "[0;\n 0]", storage.Zeros(storage.F64, 2, 1).String())
	assert.Equal(t, "[]", storage.Mat{}.String())
}

func TestMat_ShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yml")
	writeSample(t, path)

	r, err := storage.Open(path)
	require.NoError(t, err)

	_, err = r.Get("Mapping").Mat()
	require.ErrorIs(t, err, storage.ErrShapeMismatch)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path       string
		format     storage.Format
		compressed bool
	}{
		{"a.yml", storage.FormatYAML, false},
		{"a.YAML", storage.FormatYAML, false},
		{"dir.x/a.xml", storage.FormatXML, false},
		{"a.yaml.gz", storage.FormatYAML, true},
		{"a.xml.gz", storage.FormatXML, true},
	}

	for _, tt := range tests {
		format, compressed, err := storage.DetectFormat(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.format, format, tt.path)
		assert.Equal(t, tt.compressed, compressed, tt.path)
	}

	_, _, err := storage.DetectFormat("a.gz")
	require.Error(t, err)
}
