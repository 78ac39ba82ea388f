package domain

// Category is one directory search bucket the aggregator fans out over.
// An empty Tag is the catch-all query with no type filter.
type Category struct {
	Name string `yaml:"name" json:"name"`
	Tag  string `yaml:"tag" json:"tag"`
}

// DefaultTaxonomy is the built-in fan-out set. Deployments can override it
// via the taxonomy config file.
func DefaultTaxonomy() []Category {
	return []Category{
		{Name: "food service", Tag: "restaurant"},
		{Name: "cafes", Tag: "cafe"},
		{Name: "bars", Tag: "bar"},
		{Name: "retail", Tag: "store"},
		{Name: "groceries", Tag: "supermarket"},
		{Name: "health", Tag: "hospital"},
		{Name: "pharmacies", Tag: "pharmacy"},
		{Name: "automotive", Tag: "car_repair"},
		{Name: "fuel", Tag: "gas_station"},
		{Name: "financial", Tag: "bank"},
		{Name: "hospitality", Tag: "lodging"},
		{Name: "professional services", Tag: "lawyer"},
		{Name: "catch-all", Tag: ""},
	}
}
