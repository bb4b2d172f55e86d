package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

func TestParseSubscriptionTier(t *testing.T) {
	tier, ok := parseSubscriptionTier("pro")
	assert.True(t, ok)
	assert.Equal(t, domain.TierPro, tier)

	_, ok = parseSubscriptionTier("enterprise")
	assert.False(t, ok)
}

func TestParsePersona(t *testing.T) {
	p, ok := parsePersona("quant_lite")
	assert.True(t, ok)
	assert.Equal(t, domain.PersonaQuantLite, p)

	_, ok = parsePersona("rogue")
	assert.False(t, ok)
}

func TestParseAlgorithm(t *testing.T) {
	m, ok := parseAlgorithm("mean_reversion")
	assert.True(t, ok)
	assert.Equal(t, domain.AlgorithmMeanReversion, m)

	_, ok = parseAlgorithm("scalping")
	assert.False(t, ok)
}

func TestParseStrictness(t *testing.T) {
	l, ok := parseStrictness("high")
	assert.True(t, ok)
	assert.Equal(t, domain.StrictnessHigh, l)

	_, ok = parseStrictness("extreme")
	assert.False(t, ok)
}

func TestParseAssetFocus(t *testing.T) {
	f, ok := parseAssetFocus("majors", nil)
	assert.True(t, ok)
	assert.Equal(t, domain.AssetFocusMajors, f.Kind)

	f, ok = parseAssetFocus("custom", []string{"DOGE", "SHIB"})
	assert.True(t, ok)
	assert.Equal(t, domain.AssetFocusCustom, f.Kind)
	assert.Equal(t, []string{"DOGE", "SHIB"}, f.CustomSymbols)

	_, ok = parseAssetFocus("custom", nil)
	assert.False(t, ok, "custom focus with no symbols must fail Valid()")

	_, ok = parseAssetFocus("everything", nil)
	assert.False(t, ok)
}

func TestParsePagination(t *testing.T) {
	limit, offset := parsePagination("", "")
	assert.Equal(t, int64(100), limit)
	assert.Equal(t, int64(0), offset)

	limit, offset = parsePagination("5000", "-3")
	assert.Equal(t, int64(1000), limit, "limit clamps to 1000")
	assert.Equal(t, int64(0), offset, "negative offset clamps to 0")

	limit, offset = parsePagination("0", "25")
	assert.Equal(t, int64(1), limit, "limit clamps to 1 minimum")
	assert.Equal(t, int64(25), offset)

	limit, _ = parsePagination("not-a-number", "")
	assert.Equal(t, int64(100), limit, "unparseable limit falls back to default")
}
