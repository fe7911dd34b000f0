package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	cases := []struct {
		wire string
		want Tag
	}{
		{"1.0.0P", Tag{Number: "1.0.0", Channel: Production}},
		{"0.9.0RC", Tag{Number: "0.9.0", Channel: RC}},
		{"2.3.1b", Tag{Number: "2.3.1", Channel: Beta}},
		{"2.3.1a", Tag{Number: "2.3.1", Channel: Alpha}},
		{"9.9.9*", Tag{Number: "9.9.9", Channel: Patched}},
	}
	for _, c := range cases {
		got, ok := Parse(c.wire)
		require.True(t, ok, c.wire)
		assert.Equal(t, c.want, got)
		assert.Equal(t, c.wire, got.String())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "1.0P", "1.0.0.0P", "1.0.0Q", "abcP"} {
		_, ok := Parse(s)
		assert.False(t, ok, s)
	}
}

func TestTagJSONRoundTrip(t *testing.T) {
	tag := Tag{Number: "1.2.3", Channel: RC}
	data, err := tag.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.2.3RC"`, string(data))

	var out Tag
	require.NoError(t, out.UnmarshalJSON(data))
	assert.Equal(t, tag, out)
}

func TestCompatibleMatchesTable(t *testing.T) {
	mk := func(number string, ch Channel) Tag { return Tag{Number: number, Channel: ch} }

	cases := []struct {
		name     string
		incoming Tag
		local    Tag
		want     bool
	}{
		{"alpha-alpha", mk("1.0.0", Alpha), mk("1.0.0", Alpha), true},
		{"alpha-beta", mk("1.0.0", Alpha), mk("1.0.0", Beta), true},
		{"alpha-rc", mk("1.0.0", Alpha), mk("1.0.0", RC), false},
		{"alpha-production", mk("1.0.0", Alpha), mk("1.0.0", Production), false},
		{"alpha-patched", mk("1.0.0", Alpha), mk("9.9.9", Patched), true},
		{"beta-patched", mk("1.0.0", Beta), mk("9.9.9", Patched), true},
		{"rc-rc-major-match", mk("1.2.0", RC), mk("1.9.0", RC), true},
		{"rc-rc-major-mismatch", mk("1.2.0", RC), mk("2.9.0", RC), false},
		{"rc-production-minor-match", mk("1.2.0", RC), mk("1.2.9", Production), true},
		{"rc-production-minor-mismatch", mk("1.2.0", RC), mk("1.3.9", Production), false},
		{"rc-alpha", mk("1.2.0", RC), mk("1.2.0", Alpha), false},
		{"production-production-minor-match", mk("1.2.0", Production), mk("1.2.9", Production), true},
		{"production-production-minor-mismatch", mk("1.2.0", Production), mk("1.3.0", Production), false},
		{"production-rc-minor-match", mk("1.2.0", Production), mk("1.2.9", RC), true},
		{"production-beta", mk("1.2.0", Production), mk("1.2.0", Beta), false},
		{"patched-anything", mk("9.9.9", Patched), mk("0.0.1", Alpha), true},
		{"anything-patched", mk("0.0.1", Alpha), mk("9.9.9", Patched), true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Compatible(c.incoming, c.local))
		})
	}
}

func TestCompatibleReflexiveForNonPatched(t *testing.T) {
	for _, ch := range []Channel{Alpha, Beta, RC, Production} {
		tag := Tag{Number: "1.4.0", Channel: ch}
		assert.True(t, Compatible(tag, tag), ch.String())
	}
}

func TestCompatibleStringsUnparseableIsIncompatible(t *testing.T) {
	assert.False(t, CompatibleStrings("garbage", "1.0.0P"))
	assert.False(t, CompatibleStrings("1.0.0P", "garbage"))
	assert.True(t, CompatibleStrings("1.0.0P", "1.0.0P"))
}
