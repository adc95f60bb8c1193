package domain

// TrustTier buckets a claim by its share of the total trust mass in a
// conflict.
type TrustTier string

const (
	TierDominant  TrustTier = "dominant"
	TierFavoured  TrustTier = "favoured"
	TierContested TrustTier = "contested"
	TierMarginal  TrustTier = "marginal"
)

func ComputeTier(share float64) TrustTier {
	switch {
	case share > 0.75:
		return TierDominant
	case share > 0.50:
		return TierFavoured
	case share > 0.25:
		return TierContested
	default:
		return TierMarginal
	}
}

var TierShareThresholds = map[TrustTier]struct{ Min, Max float64 }{
	TierDominant:  {Min: 0.75, Max: 1.0},
	TierFavoured:  {Min: 0.50, Max: 0.75},
	TierContested: {Min: 0.25, Max: 0.50},
	TierMarginal:  {Min: 0.0, Max: 0.25},
}

func TierReason(share float64) string {
	switch ComputeTier(share) {
	case TierDominant:
		return "share > 0.75"
	case TierFavoured:
		return "0.50 < share <= 0.75"
	case TierContested:
		return "0.25 < share <= 0.50"
	default:
		return "share <= 0.25"
	}
}

func AllTiers() []TrustTier {
	return []TrustTier{TierDominant, TierFavoured, TierContested, TierMarginal}
}

func ValidTier(t string) bool {
	switch TrustTier(t) {
	case TierDominant, TierFavoured, TierContested, TierMarginal:
		return true
	}
	return false
}
