package table

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValueText(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"empty", Empty(), ""},
		{"string", String("Apple"), "Apple"},
		{"integer", Number(10), "10"},
		{"decimal", Number(2.5), "2.5"},
		{"bool", Bool(true), "TRUE"},
		{"date", Date(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), "2024-03-01"},
		{"datetime", Date(time.Date(2024, 3, 1, 13, 5, 0, 0, time.UTC)), "2024-03-01T13:05:00"},
		{"formula", Formula("SUM(A1:A2)", Number(30)), "30"},
		{"richtext", RichText(Run{Text: "Hel", Bold: true}, Run{Text: "lo"}), "Hello"},
		{"link text", Hyperlink("Docs", "https://example.com"), "Docs"},
		{"link target", Hyperlink("", "https://example.com"), "https://example.com"},
		{"error", Error("#DIV/0!"), "#DIV/0!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.v.Text())
		})
	}
}

func TestValueFloat(t *testing.T) {
	f, ok := String(" 12.5 ").Float()
	require.True(t, ok)
	require.Equal(t, 12.5, f)

	_, ok = String("").Float()
	require.False(t, ok)
	_, ok = String("abc").Float()
	require.False(t, ok)
	_, ok = Empty().Float()
	require.False(t, ok)
	_, ok = Bool(true).Float()
	require.False(t, ok)

	f, ok = Formula("A1*2", String("8")).Float()
	require.True(t, ok)
	require.Equal(t, 8.0, f)
}

func TestValueNativeJSON(t *testing.T) {
	row := []Value{Number(1), String("Apple"), Bool(false), Empty(), Hyperlink("x", "y")}
	b, err := json.Marshal(row)
	require.NoError(t, err)
	require.JSONEq(t, `[1,"Apple",false,"","x"]`, string(b))
}

func TestRowKeepsFirstSeenOrder(t *testing.T) {
	r := RowOf("b", 1, "a", 2)
	r.Set("b", Number(3))
	require.Equal(t, []string{"b", "a"}, r.Keys())
	require.Equal(t, 3.0, r.Cell("b").Num)

	_, ok := r.Get("missing")
	require.False(t, ok)
	require.True(t, r.Cell("missing").IsEmpty())
}

func TestTableColumnsAndWindow(t *testing.T) {
	tbl := &Table{Rows: []Row{RowOf("ID", 1, "Name", "A"), RowOf("ID", 2, "Name", "B"), RowOf("ID", 3, "Name", "C")}}
	require.Equal(t, []string{"ID", "Name"}, tbl.Columns())
	require.True(t, tbl.HasColumn("Name"))

	require.Equal(t, 2, tbl.Window(1, -1).Len())
	require.Equal(t, 1, tbl.Window(1, 1).Len())
	require.Equal(t, 0, tbl.Window(5, 2).Len())
	require.Equal(t, 0, tbl.Window(0, 0).Len())
}

func TestHeaderName(t *testing.T) {
	require.Equal(t, "Region", HeaderName("Region", 0))
	require.Equal(t, "Column 3", HeaderName("  ", 2))
}
