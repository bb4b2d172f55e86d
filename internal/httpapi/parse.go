package httpapi

import (
	"strconv"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

// parseSubscriptionTier, parsePersona, etc. validate a wire string against
// the closed enum it names, grounded on the original http_parse.rs switch
// statements — unknown values are rejected outright rather than defaulted.

func parseSubscriptionTier(raw string) (domain.SubscriptionTier, bool) {
	t := domain.SubscriptionTier(raw)
	return t, t.Valid()
}

func parsePersona(raw string) (domain.Persona, bool) {
	p := domain.Persona(raw)
	return p, p.Valid()
}

func parseAlgorithm(raw string) (domain.AlgorithmMode, bool) {
	m := domain.AlgorithmMode(raw)
	return m, m.Valid()
}

func parseStrictness(raw string) (domain.StrictnessLevel, bool) {
	l := domain.StrictnessLevel(raw)
	return l, l.Valid()
}

func parseAssetFocus(raw string, customSymbols []string) (domain.AssetFocus, bool) {
	switch raw {
	case string(domain.AssetFocusMajors):
		return domain.AssetFocus{Kind: domain.AssetFocusMajors}, true
	case string(domain.AssetFocusMemes):
		return domain.AssetFocus{Kind: domain.AssetFocusMemes}, true
	case string(domain.AssetFocusCustom):
		f := domain.AssetFocus{Kind: domain.AssetFocusCustom, CustomSymbols: customSymbols}
		return f, f.Valid()
	default:
		return domain.AssetFocus{}, false
	}
}

// parsePagination clamps limit to [1,1000] (default 100) and offset to >= 0,
// exactly as spec.md §6 requires for GET /accounts/{id}/bots.
func parsePagination(limitRaw, offsetRaw string) (limit, offset int64) {
	limit = 100
	if limitRaw != "" {
		if n, err := strconv.ParseInt(limitRaw, 10, 64); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}

	offset = 0
	if offsetRaw != "" {
		if n, err := strconv.ParseInt(offsetRaw, 10, 64); err == nil {
			offset = n
		}
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
