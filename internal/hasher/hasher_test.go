package hasher

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

func dataURLOf(mime string, b []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)
}

func TestOf_KnownVector(t *testing.T) {
	d, err := Of(Text("abc"))
	require.NoError(t, err)
	require.Equal(t, Digest("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"), d)
	require.Len(t, string(d), Size)
}

func TestOf_SameBytesSameDigestAcrossShapes(t *testing.T) {
	payloads := [][]byte{
		[]byte("invoice-2025"),
		{},
		{0x00, 0xff, 0x10, 0x80},
		[]byte("ñandú ✓"),
	}
	for _, p := range payloads {
		fromBytes, err := Of(Bytes(p))
		require.NoError(t, err)

		fromText, err := Of(Text(string(p)))
		require.NoError(t, err)

		fromURL, err := Of(DataURL(dataURLOf("application/pdf", p)))
		require.NoError(t, err)

		again, err := Of(Bytes(p))
		require.NoError(t, err)

		require.Equal(t, fromBytes, fromText)
		require.Equal(t, fromBytes, fromURL)
		require.Equal(t, fromBytes, again)
	}
}

func TestOf_PercentEncodedDataURL(t *testing.T) {
	a, err := Of(DataURL("data:text/plain,hola%20mundo"))
	require.NoError(t, err)
	b, err := Of(Text("hola mundo"))
	require.NoError(t, err)
	require.Equal(t, b, a)
}

func TestOf_SingleByteFlipChangesDigest(t *testing.T) {
	content := []byte("invoice-2025")
	base, err := Of(Bytes(content))
	require.NoError(t, err)

	for i := range content {
		mutated := append([]byte(nil), content...)
		mutated[i] ^= 0x01
		d, err := Of(Bytes(mutated))
		require.NoError(t, err)
		require.NotEqual(t, base, d, "flip at %d", i)
	}
}

func TestOf_UnsupportedShapes(t *testing.T) {
	cases := map[string]Input{
		"zero value":   {},
		"no scheme":    DataURL("text/plain;base64,AAAA"),
		"no separator": DataURL("data:text/plain;base64"),
		"bad base64":   DataURL("data:application/pdf;base64,@@@"),
		"bad escaping": DataURL("data:text/plain,%zz"),
	}
	for name, in := range cases {
		_, err := Of(in)
		if !errors.Is(err, repository.ErrUnsupportedInputShape) {
			t.Fatalf("%s: expected ErrUnsupportedInputShape, got %v", name, err)
		}
	}
}

func TestFromString(t *testing.T) {
	require.Equal(t, KindDataURL, FromString("data:,x").Kind())
	require.Equal(t, KindText, FromString("plain").Kind())
}

func TestMatches(t *testing.T) {
	d, err := Of(Text("contrato"))
	require.NoError(t, err)

	ok, err := Matches(Bytes([]byte("contrato")), d)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Matches(Text("contrato."), d)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParseAndBytes(t *testing.T) {
	d, err := Of(Text("x"))
	require.NoError(t, err)

	p, err := Parse("  " + string(d) + " ")
	require.NoError(t, err)
	require.Equal(t, d, p)

	raw, err := p.Bytes()
	require.NoError(t, err)
	require.Len(t, raw, 32)
	require.Equal(t, string(d[:16]), d.Short())

	_, err = Parse("abc")
	require.ErrorIs(t, err, repository.ErrInvalidInput)
	_, err = Parse(string(d[:62]) + "zz")
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}
