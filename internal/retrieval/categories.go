package retrieval

// Activity categories grouped by where they happen. Content tagged with a
// category but no explicit location gets one derived here at index time,
// so the indoor/outdoor filter works across the whole library.
var (
	indoorCategories = map[string]struct{}{
		"sensory":      {},
		"art":          {},
		"music":        {},
		"building":     {},
		"pretend_play": {},
		"cooking":      {},
		"quiet_time":   {},
	}
	outdoorCategories = map[string]struct{}{
		"gross_motor": {},
		"nature":      {},
		"water_play":  {},
		"sports":      {},
		"gardening":   {},
		"exploration": {},
	}
)

// LocationForCategory maps an activity category to indoor/outdoor, or ""
// for categories that work in either place.
func LocationForCategory(category string) string {
	if _, ok := indoorCategories[category]; ok {
		return "indoor"
	}
	if _, ok := outdoorCategories[category]; ok {
		return "outdoor"
	}
	return ""
}

// deriveLocation fills in the location key from the category when absent.
func deriveLocation(metadata map[string]interface{}) {
	if metadata == nil {
		return
	}
	if _, ok := metadata["location"]; ok {
		return
	}
	category, ok := metadata["category"].(string)
	if !ok {
		return
	}
	if loc := LocationForCategory(category); loc != "" {
		metadata["location"] = loc
	}
}
