package vital

// ProviderSlug identifies one data source connected to the aggregator.
type ProviderSlug string

const (
	ProviderAppleHealthKit ProviderSlug = "apple_health_kit"
	ProviderDexcom         ProviderSlug = "dexcom"
	ProviderFreestyleLibre ProviderSlug = "freestyle_libre"
)
