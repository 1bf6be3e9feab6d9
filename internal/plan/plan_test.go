package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqpref/internal/relalg"
)

func join(names ...string) relalg.Query {
	refs := make([]relalg.TableRef, len(names))
	for i, n := range names {
		refs[i] = relalg.From(n)
	}
	return &relalg.Select{Columns: relalg.Cols(relalg.Star{}), From: refs}
}

func TestBuild_TopologicalOrder(t *testing.T) {
	b := NewBuilder("s")
	// Added out of dependency order on purpose.
	b.Add("equiv", join("z", "id"))
	b.Add("z", join("s"))
	b.Add("id", join("z"))

	p, err := b.Build("equiv")
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "id", "equiv"}, p.Names())
	assert.Equal(t, []string{"s"}, p.Inputs)
	assert.Equal(t, "equiv", p.FinalNode().Name)

	equiv, ok := p.Node("equiv")
	require.True(t, ok)
	assert.Equal(t, []string{"z", "id"}, equiv.DependsOn)
	assert.Empty(t, p.Nodes[0].DependsOn)
}

func TestBuild_InsertionOrderBreaksTies(t *testing.T) {
	b := NewBuilder("s", "tup")
	b.Add("z", join("s"))
	b.Add("b", join("z"))
	b.Add("a", join("z", "tup"))
	b.Add("c", join("a", "b"))

	p, err := b.Build("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "b", "a", "c"}, p.Names())
	assert.True(t, p.Reads("tup"))
	assert.False(t, p.Reads("other"))
}

func TestBuild_OrderIsTopological(t *testing.T) {
	b := NewBuilder("s")
	b.Add("n4", join("n2", "n3"))
	b.Add("n3", join("n1"))
	b.Add("n2", join("n1"))
	b.Add("n1", join("s"))

	p, err := b.Build("n4")
	require.NoError(t, err)

	pos := map[string]int{}
	for i, n := range p.Nodes {
		pos[n.Name] = i
	}
	for _, n := range p.Nodes {
		for _, d := range n.DependsOn {
			assert.Less(t, pos[d], pos[n.Name], "%s before %s", d, n.Name)
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Builder)
		final string
		want  error
	}{
		{
			name: "duplicate",
			build: func(b *Builder) {
				b.Add("z", join("s"))
				b.Add("z", join("s"))
			},
			final: "z",
			want:  ErrDuplicateNode,
		},
		{
			name:  "node shadows base relation",
			build: func(b *Builder) { b.Add("s", join("z")) },
			final: "s",
			want:  ErrDuplicateNode,
		},
		{
			name:  "unknown relation",
			build: func(b *Builder) { b.Add("z", join("nowhere")) },
			final: "z",
			want:  ErrUnknownRelation,
		},
		{
			name: "cycle",
			build: func(b *Builder) {
				b.Add("a", join("b"))
				b.Add("b", join("a"))
			},
			final: "a",
			want:  ErrCycle,
		},
		{
			name:  "self loop",
			build: func(b *Builder) { b.Add("a", join("a")) },
			final: "a",
			want:  ErrCycle,
		},
		{
			name:  "missing final",
			build: func(b *Builder) { b.Add("z", join("s")) },
			final: "equiv",
			want:  ErrNoFinal,
		},
		{
			name:  "malformed query",
			build: func(b *Builder) { b.Add("z", &relalg.Union{}) },
			final: "z",
			want:  relalg.ErrMalformed,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder("s")
			tc.build(b)
			_, err := b.Build(tc.final)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBuild_CycleMessageNamesPath(t *testing.T) {
	b := NewBuilder()
	b.Add("a", join("b"))
	b.Add("b", join("a"))
	_, err := b.Build("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestBuild_RendersBodies(t *testing.T) {
	b := NewBuilder("s")
	b.Add("z", join("s"))
	p, err := b.Build("z")
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nFROM s;", p.Nodes[0].Body)
}

func buildSample(t *testing.T) *Plan {
	t.Helper()
	b := NewBuilder("s")
	b.Add("z", join("s"))
	b.Add("equiv", &relalg.Select{
		Columns: relalg.Cols(relalg.Star{Table: "z"}),
		From:    []relalg.TableRef{relalg.From("z")},
		Where:   relalg.Cmp{Op: relalg.Le, Left: relalg.C("A3"), Right: relalg.Int(2)},
	})
	p, err := b.Build("equiv")
	require.NoError(t, err)
	return p
}

func TestFingerprint_Stable(t *testing.T) {
	first, err := buildSample(t).Fingerprint()
	require.NoError(t, err)
	second, err := buildSample(t).Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	id1, err := buildSample(t).ID()
	require.NoError(t, err)
	id2, err := buildSample(t).ID()
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 5, int(id1.Version()))
}

func TestFingerprint_ChangesWithBody(t *testing.T) {
	p := buildSample(t)
	before, err := p.Fingerprint()
	require.NoError(t, err)

	p.Nodes[1].Body += " "
	after, err := p.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := buildSample(t).Canonical()
	require.NoError(t, err)
	assert.Contains(t, string(data), "A3 <= 2")
	assert.Contains(t, string(data), `"depends_on":["z"]`)
}
