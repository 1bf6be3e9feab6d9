package experiment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqpref/internal/operator"
	"github.com/roach88/seqpref/internal/stream"
)

const bestseqYAML = `
operator: bestseq
algorithms: [cql, bnl_search]
domain_max: 4
directory: work
parameters:
  att: {def: 6}
  nsq: {def: 4}
  ran: {def: 2, var: [2, 3]}
  sli: {def: 1}
  rul: {def: 2}
  lev: {def: 1, var: [1, 2]}
  ind: {def: 1}
`

func parseYAML(t *testing.T, src string) *Config {
	t.Helper()
	cfg, err := ParseYAML([]byte(src))
	require.NoError(t, err)
	cfg.applyDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestParseYAML(t *testing.T) {
	cfg := parseYAML(t, bestseqYAML)
	kind, err := cfg.Kind()
	require.NoError(t, err)
	assert.Equal(t, operator.BestSeq, kind)
	assert.Equal(t, []string{"cql", "bnl_search"}, cfg.Algorithms)
	assert.Equal(t, 1.0, cfg.TupleRate)
	assert.Equal(t, 1, cfg.RunCount)
	assert.Equal(t, []string{"lev", "ran"}, cfg.Varied())
	assert.Equal(t, 4, cfg.LastTimestamp())
	assert.Equal(t, 1, cfg.MaxSlide())
}

func TestParseYAML_UnknownField(t *testing.T) {
	_, err := ParseYAML([]byte("operator: seq\nalgoritms: [cql]\n"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "yaml", le.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "unknown operator",
			src:  "operator: endseq\nalgorithms: [cql]\ndomain_max: 2\n",
			want: []string{"operator:"},
		},
		{
			name: "missing parameters",
			src:  "operator: conseq\nalgorithms: [cql]\ndomain_max: 2\nparameters:\n  att: {def: 2}\n",
			want: []string{"parameters.nsq: required", "parameters.pct: required", "parameters.ran: required"},
		},
		{
			name: "unused and unknown parameters",
			src: "operator: seq\nalgorithms: [cql]\ndomain_max: 2\nparameters:\n" +
				"  att: {def: 2}\n  nsq: {def: 2}\n  ran: {def: 2}\n  sli: {def: 1}\n  rul: {def: 2}\n  foo: {def: 1}\n",
			want: []string{"parameters.rul: not used by seq", "parameters.foo: unknown parameter"},
		},
		{
			name: "non integer value",
			src: "operator: seq\nalgorithms: [cql]\ndomain_max: 2\nparameters:\n" +
				"  att: {def: 2}\n  nsq: {def: 2}\n  ran: {def: 2, var: [2.5]}\n  sli: {def: 1}\n",
			want: []string{"value 2.5 is not an integer"},
		},
		{
			name: "topk has no cql plan",
			src: "operator: topkseq\nalgorithms: [cql]\ndomain_max: 2\nparameters:\n" +
				"  att: {def: 5}\n  nsq: {def: 2}\n  ran: {def: 2}\n  sli: {def: 1}\n  rul: {def: 2}\n  lev: {def: 1}\n  top: {def: 1}\n",
			want: []string{"topkseq has no cql equivalent"},
		},
		{
			name: "small domain",
			src:  "operator: seq\nalgorithms: [\"a/b\"]\ndomain_max: 1\n",
			want: []string{"domain_max: must be >= 2", `invalid algorithm name "a/b"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseYAML([]byte(tt.src))
			require.NoError(t, err)
			cfg.applyDefaults()
			err = cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestParseCUE(t *testing.T) {
	src := `
operator:   "seq"
algorithms: ["cql", "seq"]
domain_max: 8
tuple_rate: 0.5
parameters: {
	att: def: 3
	nsq: def: 10
	ran: {def: 4, var: [2, 4]}
	sli: def: 1
}
`
	cfg, err := ParseCUE("exp.cue", []byte(src))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "seq", cfg.Operator)
	assert.Equal(t, 0.5, cfg.TupleRate)
	assert.Equal(t, 1, cfg.RunCount, "schema default")
	assert.Equal(t, uint64(1), cfg.Seed, "schema default")
	assert.Equal(t, []float64{2, 4}, cfg.Parameters[ParamRange].Vary)
}

func TestParseCUE_SchemaViolation(t *testing.T) {
	src := `
operator:   "seq"
algorithms: ["cql"]
domain_max: 1
parameters: {}
`
	_, err := ParseCUE("exp.cue", []byte(src))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "domain_max", le.Field)
	assert.True(t, le.Pos.IsValid())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bestseq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(bestseqYAML), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "work"), cfg.Directory)

	_, err = LoadFile(filepath.Join(dir, "bestseq.toml"))
	assert.ErrorContains(t, err, "unsupported configuration format")
}

func TestLoadFile_CUE(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seq.cue")
	src := `operator: "seq"
algorithms: ["cql"]
domain_max: 2
directory: "/tmp/seq"
parameters: {
	att: def: 2
	nsq: def: 2
	ran: def: 2
	sli: def: 1
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/seq", cfg.Directory)
}

func TestExpand(t *testing.T) {
	cfg := parseYAML(t, bestseqYAML)
	experiments, err := cfg.Expand()
	require.NoError(t, err)

	var got []string
	for _, e := range experiments {
		got = append(got, e.Algorithm+"/"+e.ID)
	}
	assert.Equal(t, []string{
		"cql/lev1ran2", "cql/lev2ran2", "cql/lev1ran3",
		"bnl_search/lev1ran2", "bnl_search/lev2ran2", "bnl_search/lev1ran3",
	}, got)

	e := experiments[2]
	assert.Equal(t, "att6nsq4", e.DataID)
	assert.Equal(t, operator.BestSeq, e.Spec.Kind)
	assert.Equal(t, 3, e.Spec.Window.Range)
	assert.Equal(t, 1, e.Spec.Rules.Levels)
	assert.Equal(t, 4, e.Spec.Rules.DomainMax)
	assert.Equal(t, 6, e.Schema.Attributes)
	assert.Equal(t, 1, e.Schema.Indifferent)
	assert.False(t, e.Native())
	assert.True(t, experiments[3].Native())
}

func TestExpand_NoVariation(t *testing.T) {
	cfg := parseYAML(t, `
operator: maxseq
algorithms: [maxseq]
domain_max: 2
parameters:
  att: {def: 2}
  nsq: {def: 2}
  ran: {def: 4}
  sli: {def: 1}
  max: {def: 2}
`)
	experiments, err := cfg.Expand()
	require.NoError(t, err)
	require.Len(t, experiments, 1)
	assert.Equal(t, "default", experiments[0].ID)
	assert.Equal(t, 2, experiments[0].Spec.MaxLength)
}

func TestExpand_InvalidSpec(t *testing.T) {
	cfg := parseYAML(t, `
operator: seq
algorithms: [cql]
domain_max: 2
parameters:
  att: {def: 2}
  nsq: {def: 2}
  ran: {def: 2, var: [0]}
  sli: {def: 1}
`)
	_, err := cfg.Expand()
	assert.ErrorIs(t, err, operator.ErrInvalidConfig)
	assert.ErrorContains(t, err, "experiment cql/ran0")
}

func TestWorkspacePaths(t *testing.T) {
	w := Workspace{Root: "/w"}
	e := Experiment{Algorithm: "cql", ID: "ran5"}
	assert.Equal(t, "/w/data/att5.csv", w.DataFile("att5"))
	assert.Equal(t, "/w/data/tup.csv", w.CompletionFile())
	assert.Equal(t, "/w/queries/cql/ran5", w.QueryDir(e))
	assert.Equal(t, "/w/env/cql/ran5.env", w.EnvFile(e))
	assert.Equal(t, "/w/out/cql/ran5.csv", w.OutFile(e))
	assert.Equal(t, "/w/details/cql/ran5:2.csv", w.DetailFile(e, 2))
	assert.Equal(t, "/w/summary/run_ran.csv", w.SummaryFile(MeasureRuntime, "ran"))
	assert.Equal(t, "/w/result/mem_ran.csv", w.ResultFile(MeasureMemory, "ran"))
}

func TestGenerate(t *testing.T) {
	cfg := parseYAML(t, bestseqYAML)
	ws := Workspace{Root: t.TempDir()}
	g := &Generator{Config: cfg, Workspace: ws, Output: true, Parallelism: 2}

	res, err := g.Generate(t.Context())
	require.NoError(t, err)
	require.Len(t, res.Experiments, 6)
	assert.Equal(t, []string{ws.DataFile("att6nsq4")}, res.Streams)
	assert.Len(t, res.Documents, 6)

	f, err := os.Open(ws.DataFile("att6nsq4"))
	require.NoError(t, err)
	defer f.Close()
	tuples, err := stream.ReadCSV(f, res.Experiments[0].Schema)
	require.NoError(t, err)
	assert.Len(t, tuples, 4*5, "every identifier at timestamps 0..4")

	tup, err := os.ReadFile(ws.CompletionFile())
	require.NoError(t, err)
	assert.Equal(t, 1+4*4, strings.Count(string(tup), "\n"))

	cql := res.Experiments[0]
	env, err := os.ReadFile(ws.EnvFile(cql))
	require.NoError(t, err)
	assert.Contains(t, string(env), "REGISTER TABLE tup")
	assert.Contains(t, string(env), "OUTPUT '"+ws.OutFile(cql)+"'")
	assert.FileExists(t, filepath.Join(ws.QueryDir(cql), "equiv.cql"))
	assert.FileExists(t, filepath.Join(ws.QueryDir(cql), "p_join.cql"))

	native := res.Experiments[3]
	env, err = os.ReadFile(ws.EnvFile(native))
	require.NoError(t, err)
	assert.NotContains(t, string(env), "REGISTER TABLE tup")
	body, err := os.ReadFile(filepath.Join(ws.QueryDir(native), "bestseq.cql"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "TEMPORAL PREFERENCES")
}

func TestGenerate_ConseqStreams(t *testing.T) {
	cfg := parseYAML(t, `
operator: conseq
algorithms: [cql]
domain_max: 2
parameters:
  att: {def: 2}
  nsq: {def: 3}
  pct: {def: 0.5, var: [0.5, 1]}
  ran: {def: 4}
  sli: {def: 4}
`)
	ws := Workspace{Root: t.TempDir()}
	res, err := (&Generator{Config: cfg, Workspace: ws}).Generate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{ws.DataFile("att2nsq3pct0.5"), ws.DataFile("att2nsq3pct1")}, res.Streams)
	assert.NoFileExists(t, ws.CompletionFile())

	f, err := os.Open(ws.DataFile("att2nsq3pct1"))
	require.NoError(t, err)
	defer f.Close()
	tuples, err := stream.ReadCSV(f, res.Experiments[0].Schema)
	require.NoError(t, err)
	assert.Len(t, tuples, 3*9, "no gaps at 100% consecutive timestamps")
}
