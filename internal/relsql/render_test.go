package relsql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqpref/internal/relalg"
)

func TestRender_SelectWithWindow(t *testing.T) {
	q := &relalg.Select{
		Columns: []relalg.Column{relalg.As(relalg.C("_ts"), "_pos"), {Expr: relalg.Star{}}},
		From:    []relalg.TableRef{{Name: "s", Window: &relalg.Window{Kind: relalg.WindowRange, Range: 1}}},
	}

	text, err := CQLText(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT _ts AS _pos, *\nFROM s[RANGE 1 SECOND];", text)
}

func TestRender_Windows(t *testing.T) {
	tests := []struct {
		window relalg.Window
		want   string
	}{
		{relalg.Window{Kind: relalg.WindowRange, Range: 5, Slide: 2}, "[RANGE 5 SECOND, SLIDE 2 SECOND]"},
		{relalg.Window{Kind: relalg.WindowRange, Range: 3}, "[RANGE 3 SECOND]"},
		{relalg.Window{Kind: relalg.WindowNow}, "[NOW]"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			w := tc.window
			q := &relalg.Select{
				Columns: relalg.Cols(relalg.Star{}),
				From:    []relalg.TableRef{{Name: "spos", Window: &w}},
			}
			text, err := CQLText(q)
			require.NoError(t, err)
			assert.Equal(t, "SELECT *\nFROM spos"+tc.want+";", text)
		})
	}
}

func TestRender_JoinWhereGroup(t *testing.T) {
	q := &relalg.Select{
		Columns: []relalg.Column{
			relalg.As(relalg.MinOf(relalg.C("_pos")), "_pos"),
			{Expr: relalg.C("x1")},
			{Expr: relalg.C("x2")},
		},
		From: []relalg.TableRef{relalg.From("p_join")},
		Where: relalg.Or{Terms: []relalg.Expr{
			relalg.Not{X: relalg.Equal(relalg.C("A2"), relalg.C("_A2"))},
			relalg.Not{X: relalg.Equal(relalg.C("A3"), relalg.C("_A3"))},
		}},
		GroupBy: []relalg.Expr{relalg.C("x1"), relalg.C("x2")},
	}

	text, err := CQLText(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT MIN(_pos) AS _pos, x1, x2\nFROM p_join\n"+
			"WHERE (NOT A2 = _A2 OR NOT A3 = _A3)\nGROUP BY x1, x2;",
		text)
}

func TestRender_SetOperations(t *testing.T) {
	q := &relalg.Except{
		Left:  relalg.SelectAll("w1"),
		Right: relalg.SelectAll("p1"),
	}
	text, err := CQLText(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nFROM w1\nEXCEPT\nSELECT *\nFROM p1;", text)

	u := relalg.UnionOf(relalg.SelectAll("d1"), relalg.SelectAll("d2"))
	text, err = CQLText(u)
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nFROM d1\nUNION\nSELECT *\nFROM d2;", text)
}

func TestRender_Arithmetic(t *testing.T) {
	q := &relalg.Select{
		Columns: []relalg.Column{
			relalg.As(relalg.Plus(relalg.Minus(relalg.Q("z", "_pos"), relalg.Q("se", "start")), relalg.Int(1)), "_pos"),
			relalg.As(relalg.Minus(relalg.C("a"), relalg.Plus(relalg.C("b"), relalg.C("c"))), "d"),
		},
		From: []relalg.TableRef{relalg.From("z"), relalg.FromAs("p_start_end", "se")},
	}
	text, err := CQLText(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT z._pos - se.start + 1 AS _pos, a - (b + c) AS d\nFROM z, p_start_end AS se;",
		text)
}

func TestRender_EmptyAndOmitsWhere(t *testing.T) {
	q := relalg.SelectAll("z")
	q.Where = relalg.AllOf()
	text, err := CQLText(q)
	require.NoError(t, err)
	assert.NotContains(t, text, "WHERE")
}

func TestRender_Rstream(t *testing.T) {
	text, err := CQLText(&relalg.Rstream{From: "rpos"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT RSTREAM FROM rpos;", text)
}

func TestRender_RawTrimsTerminator(t *testing.T) {
	text, err := CQLText(&relalg.Raw{Text: "SELECT SEQUENCE IDENTIFIED BY A1 FROM s;\n"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT SEQUENCE IDENTIFIED BY A1 FROM s;", text)
}

func TestRender_SQLiteQuotesIdentifiers(t *testing.T) {
	q := &relalg.Select{
		Distinct: true,
		Columns:  []relalg.Column{relalg.As(relalg.Q("e", "end"), "end")},
		From:     []relalg.TableRef{relalg.FromAs("p_end", "e")},
		Where:    relalg.Cmp{Op: relalg.Gt, Left: relalg.C("end"), Right: relalg.Int(1)},
	}
	text, err := NewRenderer(SQLite).Render(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT "e"."end" AS "end"`+"\n"+`FROM "p_end" AS "e"`+"\n"+`WHERE "end" > 1`, text)
}

func TestRender_SQLiteWrapsNestedCompound(t *testing.T) {
	q := &relalg.Except{
		Left:  relalg.SelectAll("a"),
		Right: relalg.UnionOf(relalg.SelectAll("b"), relalg.SelectAll("c")),
	}
	text, err := NewRenderer(SQLite).Render(q)
	require.NoError(t, err)
	assert.Contains(t, text, "EXCEPT\nSELECT * FROM (SELECT *")
}

func TestRender_SQLiteRejectsStreamConstructs(t *testing.T) {
	r := NewRenderer(SQLite)
	tests := []relalg.Query{
		&relalg.Rstream{From: "rpos"},
		&relalg.Raw{Text: "SELECT SEQUENCE IDENTIFIED BY A1 FROM s"},
		&relalg.Select{
			Columns: relalg.Cols(relalg.Star{}),
			From:    []relalg.TableRef{{Name: "s", Window: &relalg.Window{Kind: relalg.WindowNow}}},
		},
	}
	for _, q := range tests {
		_, err := r.Render(q)
		assert.ErrorIs(t, err, ErrNotPortable)
	}
}

func TestRender_Malformed(t *testing.T) {
	_, err := CQLText(&relalg.Union{})
	assert.ErrorIs(t, err, relalg.ErrMalformed)
}

func TestRender_Deterministic(t *testing.T) {
	q := &relalg.Select{
		Columns: relalg.Cols(relalg.Q("p", "_pos"), relalg.Q("p", "x1")),
		From:    []relalg.TableRef{relalg.From("p")},
		Where:   relalg.AllOf(relalg.Equal(relalg.Q("p", "_pos"), relalg.Int(1))),
	}
	first, err := CQLText(q)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := CQLText(q)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
