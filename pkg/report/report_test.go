package report_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/firstglance/pkg/centrality"
	"github.com/Sumatoshi-tech/firstglance/pkg/cochange"
	"github.com/Sumatoshi-tech/firstglance/pkg/report"
)

func sampleReport() *report.Report {
	return &report.Report{
		Repository:  "/src/app",
		Reference:   "0123456789abcdef0123456789abcdef01234567",
		Strategy:    "dijkstra",
		GeneratedAt: time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
		Files: []report.Entry{
			{Path: "core.go", Score: 12},
			{Path: "api.go", Score: 4},
			{Path: "util.go", Score: 0},
		},
	}
}

func TestRankOrdersByScoreThenPath(t *testing.T) {
	t.Parallel()

	files := []string{"X", "a", "b", "c"}

	var changeSets [][]string

	for range 2 {
		for _, f := range files[1:] {
			changeSets = append(changeSets, []string{"X", f})
		}
	}

	g, err := cochange.Build(files, changeSets, cochange.DefaultOptions())
	require.NoError(t, err)

	e, err := centrality.NewEvaluator(centrality.DefaultOptions())
	require.NoError(t, err)

	scores, err := e.Evaluate(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, []report.Entry{
		{Path: "X", Score: 6},
		{Path: "a", Score: 0},
		{Path: "b", Score: 0},
		{Path: "c", Score: 0},
	}, report.Rank(scores))
}

func TestRankStableOnTies(t *testing.T) {
	t.Parallel()

	scores := centrality.NewScores([]string{"c", "a", "b"})

	assert.Equal(t, []report.Entry{{Path: "c", Score: 0}, {Path: "a", Score: 0}, {Path: "b", Score: 0}}, report.Rank(scores))
}

func TestTop(t *testing.T) {
	t.Parallel()

	entries := sampleReport().Files

	assert.Len(t, report.Top(entries, 0), 3)
	assert.Len(t, report.Top(entries, 10), 3)
	assert.Equal(t, entries[:2], report.Top(entries, 2))
}

func TestRenderText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Render(&buf, sampleReport(), report.FormatText))
	assert.Equal(t, "core.go -- 12\napi.go -- 4\nutil.go -- 0\n", buf.String())
}

func TestRenderTextEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Render(&buf, &report.Report{}, report.FormatText))
	assert.Empty(t, buf.String())
}

func TestRenderJSONRoundTripsThroughSchema(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Render(&buf, sampleReport(), report.FormatJSON))
	assert.Contains(t, buf.String(), `"generated_at": "2024-05-01T08:30:00Z"`)

	got, err := report.ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleReport(), got)
}

func TestRenderJSONEmptyFilesIsArray(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Render(&buf, &report.Report{}, report.FormatJSON))
	assert.Contains(t, buf.String(), `"files": []`)

	_, err := report.ReadJSON(&buf)
	require.NoError(t, err)
}

func TestRenderYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Render(&buf, sampleReport(), report.FormatYAML))

	var decoded report.Report

	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleReport().Files, decoded.Files)
	assert.Equal(t, "dijkstra", decoded.Strategy)
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Render(&buf, sampleReport(), report.FormatTable))

	out := buf.String()
	assert.Contains(t, out, "core.go")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "Total: 3 files")
	assert.NotContains(t, out, "TOTAL")
	assert.Less(t, strings.Index(out, "core.go"), strings.Index(out, "util.go"))
}

func TestRenderUnknownFormat(t *testing.T) {
	t.Parallel()

	err := report.Render(io.Discard, sampleReport(), report.Format("xml"))
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]report.Format{
		"text": report.FormatText, "JSON": report.FormatJSON, "yml": report.FormatYAML, " table ": report.FormatTable,
	} {
		got, err := report.ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := report.ParseFormat("csv")
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestReadJSONRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"not json":       `{`,
		"missing files":  `{"generated_at": "2024-05-01T08:30:00Z"}`,
		"negative score": `{"generated_at": "2024-05-01T08:30:00Z", "files": [{"path": "a", "score": -1}]}`,
		"fractional":     `{"generated_at": "2024-05-01T08:30:00Z", "files": [{"path": "a", "score": 1.5}]}`,
		"empty path":     `{"generated_at": "2024-05-01T08:30:00Z", "files": [{"path": "", "score": 1}]}`,
		"extra field":    `{"generated_at": "2024-05-01T08:30:00Z", "files": [], "edges": 3}`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := report.ReadJSON(strings.NewReader(doc))
			require.ErrorIs(t, err, report.ErrInvalidReport)
		})
	}
}

func TestReadJSONResortsFiles(t *testing.T) {
	t.Parallel()

	doc := `{"generated_at": "2024-05-01T08:30:00Z", "files": [
		{"path": "b", "score": 0}, {"path": "a", "score": 4}, {"path": "c", "score": 0}]}`

	got, err := report.ReadJSON(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []report.Entry{{Path: "a", Score: 4}, {Path: "b", Score: 0}, {Path: "c", Score: 0}}, got.Files)
}

func TestWriteAndOpenFile(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"report.json", "report.json.lz4"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), name)

			require.NoError(t, report.WriteFile(path, sampleReport(), report.FormatJSON))

			rc, err := report.OpenFile(path)
			require.NoError(t, err)

			defer rc.Close()

			got, err := report.ReadJSON(rc)
			require.NoError(t, err)
			assert.Equal(t, sampleReport(), got)
		})
	}
}

func TestWriteFileCompresses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plain := filepath.Join(dir, "r.txt")
	packed := filepath.Join(dir, "r.txt.lz4")

	rep := sampleReport()
	for i := range 200 {
		rep.Files = append(rep.Files, report.Entry{Path: "internal/generated/file.go", Score: i})
	}

	require.NoError(t, report.WriteFile(plain, rep, report.FormatText))
	require.NoError(t, report.WriteFile(packed, rep, report.FormatText))

	plainData, err := os.ReadFile(plain)
	require.NoError(t, err)

	packedData, err := os.ReadFile(packed)
	require.NoError(t, err)

	assert.Less(t, len(packedData), len(plainData))

	rc, err := report.OpenFile(packed)
	require.NoError(t, err)

	defer rc.Close()

	roundTrip, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, plainData, roundTrip)
}

func TestWriteFileClosesFrameOnRenderError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "r.xml.lz4")

	err := report.WriteFile(path, sampleReport(), report.Format("xml"))
	require.ErrorIs(t, err, report.ErrUnknownFormat)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size(), "the lz4 frame is terminated even when rendering fails")

	rc, err := report.OpenFile(path)
	require.NoError(t, err)

	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestOpenFileMissing(t *testing.T) {
	t.Parallel()

	_, err := report.OpenFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
