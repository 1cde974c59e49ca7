package pagination

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCursor_RoundTrip(t *testing.T) {
	c := Cursor{
		V:   1,
		P:   "/data/sales.xlsx",
		Op:  "filter",
		Qh:  QueryHash("Region", "eq", "West"),
		Off: 200,
		Ps:  100,
		Mt:  1_700_000_000_000_000_000,
	}
	tok, err := EncodeCursor(c)
	require.NoError(t, err)
	// token should be url-safe base64 (no '+', '/', '=')
	require.False(t, strings.ContainsAny(tok, "+/="), tok)

	out, err := DecodeCursor(tok)
	require.NoError(t, err)
	require.Equal(t, c.P, out.P)
	require.Equal(t, c.Op, out.Op)
	require.Equal(t, c.Qh, out.Qh)
	require.Equal(t, c.Off, out.Off)
	require.Equal(t, c.Ps, out.Ps)
	require.Equal(t, c.Mt, out.Mt)
	require.NotZero(t, out.Iat)
	require.True(t, out.Matches(c.P, "filter", c.Qh))
	require.False(t, out.Matches(c.P, "sort", c.Qh))
}

func TestDecodeCursor_Invalid(t *testing.T) {
	cases := []string{
		"",    // empty
		"!!!", // not base64
		base64.RawURLEncoding.EncodeToString([]byte("not-json")),
		mustB64(`{"v":1}`),
		mustB64(`{"v":1,"p":"","op":"sort","off":0,"ps":10}`),
		mustB64(`{"v":1,"p":"/a.csv","op":"","off":0,"ps":10}`),
		mustB64(`{"v":1,"p":"/a.csv","op":"sort","off":-1,"ps":10}`),
		mustB64(`{"v":1,"p":"/a.csv","op":"sort","off":0,"ps":0}`),
	}
	for i, tok := range cases {
		_, err := DecodeCursor(tok)
		require.Error(t, err, "case %d: %q", i, tok)
	}
}

func TestQueryHashSeparatesParts(t *testing.T) {
	require.Equal(t, QueryHash("a", "b"), QueryHash("a", "b"))
	require.NotEqual(t, QueryHash("ab", ""), QueryHash("a", "b"))
	require.Len(t, QueryHash(), 16)
}

func TestNextOffset(t *testing.T) {
	require.Equal(t, 10, NextOffset(0, 10))
	require.Equal(t, 5, NextOffset(5, 0))
	require.Equal(t, 3, NextOffset(-1, 3))
}

func FuzzDecodeCursor(f *testing.F) {
	seeds := []string{
		"", "abc", mustB64(`{"v":1}`), mustB64(`{"p":"x"}`),
		mustB64(`{"v":1,"p":"/a.csv","op":"filter","qh":"00","off":0,"ps":1,"mt":1}`),
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, token string) {
		c, err := DecodeCursor(token)
		if err != nil {
			return
		}
		if c.Off < 0 || c.Ps <= 0 || c.P == "" {
			t.Fatalf("decoded cursor violates invariants: %+v", c)
		}
	})
}

func mustB64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
