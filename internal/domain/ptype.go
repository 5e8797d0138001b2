package domain

import "strings"

// BucketPrecipCode maps a WS100 precipitation type code to a PrecipType.
func BucketPrecipCode(code *int) PrecipType {
	if code == nil {
		return PrecipNoData
	}
	c := *code
	switch {
	case c == 0:
		return PrecipDry
	case c == 60:
		return PrecipRain
	case c > 60 && c < 70:
		return PrecipMix
	case c == 70:
		return PrecipSnow
	default:
		return PrecipOther
	}
}

// ParsePrecipType accepts the bucket names case-insensitively. Empty or
// unrecognized input is NoData.
func ParsePrecipType(s string) PrecipType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dry":
		return PrecipDry
	case "rain":
		return PrecipRain
	case "mix":
		return PrecipMix
	case "snow":
		return PrecipSnow
	case "other":
		return PrecipOther
	default:
		return PrecipNoData
	}
}
