// Package domain turns hourly road-weather sensor data into road-safety signals.
//
// # Data Sources
//
// Three kinds of hourly source tables feed the merge step:
//
//	LHT    temperature (°C) and relative humidity (%) from roadside nodes.
//	WS100  precipitation amount (mm/h) and a precipitation type code.
//	Wind   one airport station: speed, gusts (km/h), direction (°), surface pressure (hPa).
//
// WS100 precipitation codes are bucketed as 0 Dry, 60 Rain, 61–69 Mix,
// 70 Snow, anything else Other, and a missing code NoData. See [BucketPrecipCode].
//
// # Missing Values
//
// Every measured and derived quantity on [HourlyRecord] is a *float64. A nil
// pointer means the value is unknown. Physics helpers return NaN for
// degenerate input and [Enrich] stores NaN results as nil, so a missing value
// never masquerades as a number. Every boolean flag treats an unknown input as
// "condition not met": missing humidity is never proof of a dry road.
//
// # Pipeline
//
//	MergeSources -> Enrich -> ApplyFlags -> DetectEvents -> BuildWindows -> EstimateDrying
//	                                 \-> ApplyRisk
//
// All functions are pure: they copy their input, keep state local to the call
// and can run concurrently for different sensors or calibrations.
//
// # Thresholds
//
// [Thresholds] is an immutable value. Callers derive a calibrated copy with
// [Thresholds.With] or [Thresholds.Apply]; the default returned by
// [DefaultThresholds] is never modified.
//
// Two dryness regimes exist. The strict regime models open rural exposure; the
// city regime is more permissive and accounts for urban heat-island drying.
//
// # Risk Scales
//
// The hourly slipperiness score (0–100) is labelled by two separate policies:
//
//	HourlyRiskLevel  ≥70 high | ≥40 medium | else low   (per hour)
//	BannerRiskLevel  ≥80 high | ≥40 medium | else low   (max score over 24 h)
//
// Both are kept on purpose; they are observed behaviour of the road forecast.
package domain
