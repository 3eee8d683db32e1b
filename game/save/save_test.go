package save

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/game2048/game/engine"
)

func sampleRecord() Record {
	return Record{
		Board: engine.Board{
			{2, 4, 8, 16},
			{0, 0, 0, 0},
			{0, 2, 0, 0},
			{0, 0, 0, 2048},
		},
		Score: 3120,
		Best:  5000,
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{JSON, YAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, sampleRecord(), format))

			got, err := Decode(&buf, format, 4, 0)
			require.NoError(t, err)
			assert.Equal(t, sampleRecord(), got)
		})
	}
}

func TestEncode_JSONKeys(t *testing.T) {
	data, err := Marshal(sampleRecord(), JSON)
	require.NoError(t, err)
	for _, key := range []string{`"board"`, `"score"`, `"best"`} {
		assert.Contains(t, string(data), key)
	}
}

func TestUnmarshal_MissingBoard(t *testing.T) {
	inputs := []string{
		`{"score": 10, "best": 20}`,
		`{"board": null, "score": 10}`,
		`{}`,
	}
	for _, in := range inputs {
		_, err := Unmarshal([]byte(in), JSON, 4, 0)
		assert.ErrorIs(t, err, ErrInvalidFile, in)
	}
}

func TestUnmarshal_Malformed(t *testing.T) {
	inputs := map[string]string{
		"not json":     `{{{`,
		"board string": `{"board": "nope"}`,
		"wrong size":   `{"board": [[2,0],[0,0]]}`,
		"bad tile":     `{"board": [[3,0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]]}`,
		"negative":     `{"board": [[0,0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]], "score": -5}`,
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(in), JSON, 4, 0)
			assert.ErrorIs(t, err, ErrInvalidFile)
		})
	}
}

func TestUnmarshal_Defaults(t *testing.T) {
	in := `{"board": [[2,0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]]}`
	rec, err := Unmarshal([]byte(in), JSON, 4, 777)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Score)
	assert.Equal(t, 777, rec.Best)

	in = `{"board": [[2,0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]], "score": 12, "best": 0}`
	rec, err = Unmarshal([]byte(in), JSON, 4, 777)
	require.NoError(t, err)
	assert.Equal(t, 12, rec.Score)
	assert.Equal(t, 777, rec.Best)
}

func TestDecode_YAML(t *testing.T) {
	in := strings.Join([]string{
		"board:",
		"  - [2, 0, 0, 0]",
		"  - [0, 4, 0, 0]",
		"  - [0, 0, 0, 0]",
		"  - [0, 0, 0, 8]",
		"score: 4",
	}, "\n")
	rec, err := Decode(strings.NewReader(in), YAML, 4, 50)
	require.NoError(t, err)
	assert.Equal(t, 8, rec.Board[3][3])
	assert.Equal(t, 4, rec.Score)
	assert.Equal(t, 50, rec.Best)
}

func TestFromEngine(t *testing.T) {
	eng := engine.NewEngineWithDefaults(engine.WithRandom(engine.NewSeededSource(1)))
	require.NoError(t, eng.SetState(sampleRecord().Board, 40))

	rec := FromEngine(eng, 10)
	assert.Equal(t, 40, rec.Score)
	assert.Equal(t, 40, rec.Best)

	rec = FromEngine(eng, 100)
	assert.Equal(t, 100, rec.Best)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, JSON, FormatFromPath(ExportFilename))
	assert.Equal(t, YAML, FormatFromPath("game.YML"))
	assert.Equal(t, YAML, FormatFromPath("dir/game.yaml"))
	assert.Equal(t, JSON, FormatFromPath("noext"))
}
