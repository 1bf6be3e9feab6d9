package experiment

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"
)

// configSchema constrains CUE experiment files before decoding.
const configSchema = `
#Parameter: {
	def: number
	var?: [...number]
}

operator:   "seq" | "conseq" | "bestseq" | "topkseq" | "minseq" | "maxseq"
algorithms: [string, ...string]
domain_max: int & >=2
tuple_rate: *1 | (number & >=0 & <=1)
directory:  *"." | string
run_count:  *1 | (int & >=1)
seed:       *1 | (int & >=0)
parameters: [string]: #Parameter
`

// LoadFile reads an experiment file. The format follows the extension:
// .cue, or .yaml / .yml. Relative directories are resolved against the
// file's directory.
func LoadFile(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch filepath.Ext(path) {
	case ".cue":
		cfg, err = loadCUE(path)
	case ".yaml", ".yml":
		cfg, err = loadYAML(path)
	default:
		return nil, &LoadError{Field: "file", Message: fmt.Sprintf("unsupported configuration format %q", filepath.Ext(path))}
	}
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if !filepath.IsAbs(cfg.Directory) {
		cfg.Directory = filepath.Join(filepath.Dir(path), cfg.Directory)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseYAML decodes a YAML experiment. Unknown keys are rejected.
func ParseYAML(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, &LoadError{Field: "yaml", Message: err.Error()}
	}
	return &cfg, nil
}

func loadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(data)
}

func loadCUE(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	ctx := cuecontext.New()
	instances := load.Instances([]string{filepath.Base(path)}, &load.Config{Dir: filepath.Dir(path)})
	if len(instances) == 0 {
		return nil, &LoadError{Field: "cue", Message: "no CUE instances loaded"}
	}
	if err := instances[0].Err; err != nil {
		return nil, formatCUEError(err)
	}
	return decodeCUE(ctx, ctx.BuildInstance(instances[0]))
}

// ParseCUE compiles CUE source text into a configuration. The filename
// only labels positions.
func ParseCUE(filename string, src []byte) (*Config, error) {
	ctx := cuecontext.New()
	return decodeCUE(ctx, ctx.CompileBytes(src, cue.Filename(filename)))
}

func decodeCUE(ctx *cue.Context, v cue.Value) (*Config, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	schema := ctx.CompileString(configSchema, cue.Filename("experiment.schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}
	return &cfg, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	field := "cue"
	if path := first.Path(); len(path) > 0 {
		field = strings.Join(path, ".")
	}
	le := &LoadError{Field: field, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

