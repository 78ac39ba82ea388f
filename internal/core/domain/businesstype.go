package domain

import "strings"

type BusinessType string

const (
	TypeRestaurant   BusinessType = "restaurant"
	TypeCafe         BusinessType = "cafe"
	TypeBar          BusinessType = "bar"
	TypeGrocery      BusinessType = "grocery"
	TypeRetail       BusinessType = "retail"
	TypePharmacy     BusinessType = "pharmacy"
	TypeHealth       BusinessType = "health"
	TypeAutomotive   BusinessType = "automotive"
	TypeFinancial    BusinessType = "financial"
	TypeHotel        BusinessType = "hotel"
	TypeProfessional BusinessType = "professional"
	TypeOther        BusinessType = "other"
)

// classifierRule maps directory tags or name keywords onto one BusinessType.
// Rules are evaluated top to bottom, first match wins. Order is load-bearing:
// financial precedes everything, pharmacy precedes generic retail, cafe
// precedes restaurant, food/dining precedes retail.
type classifierRule struct {
	result   BusinessType
	tags     []string
	keywords []string
}

var classifierRules = []classifierRule{
	{
		result:   TypeFinancial,
		tags:     []string{"bank", "atm", "accounting", "finance", "insurance_agency"},
		keywords: []string{"bank", "credit union", "atm"},
	},
	{
		result:   TypePharmacy,
		tags:     []string{"pharmacy", "drugstore"},
		keywords: []string{"pharmacy", "drug store", "drugstore", "apothecary"},
	},
	{
		result:   TypeCafe,
		tags:     []string{"cafe", "coffee_shop", "bakery"},
		keywords: []string{"cafe", "coffee", "espresso", "bakery"},
	},
	{
		result:   TypeBar,
		tags:     []string{"bar", "night_club", "pub"},
		keywords: []string{"bar", "pub", "tavern", "brewery"},
	},
	{
		result:   TypeRestaurant,
		tags:     []string{"restaurant", "meal_takeaway", "meal_delivery", "food"},
		keywords: []string{"restaurant", "grill", "diner", "pizza", "pizzeria", "bistro", "kitchen", "steakhouse", "sushi", "taqueria", "bbq", "burger", "noodle", "deli"},
	},
	{
		result:   TypeGrocery,
		tags:     []string{"supermarket", "grocery_or_supermarket", "convenience_store"},
		keywords: []string{"market", "grocery", "supermarket"},
	},
	{
		result:   TypeHealth,
		tags:     []string{"hospital", "doctor", "dentist", "physiotherapist", "veterinary_care"},
		keywords: []string{"clinic", "hospital", "medical", "dental", "dentist"},
	},
	{
		result:   TypeAutomotive,
		tags:     []string{"car_repair", "car_dealer", "car_wash", "gas_station"},
		keywords: []string{"auto", "tire", "garage", "motors", "gas station", "fuel"},
	},
	{
		result:   TypeHotel,
		tags:     []string{"lodging", "hotel", "motel", "resort"},
		keywords: []string{"hotel", "motel", "inn", "suites", "resort", "lodge"},
	},
	{
		result:   TypeRetail,
		tags:     []string{"store", "shopping_mall", "clothing_store", "electronics_store", "hardware_store", "furniture_store", "department_store"},
		keywords: []string{"store", "shop", "boutique", "outlet", "mart"},
	},
	{
		result:   TypeProfessional,
		tags:     []string{"lawyer", "real_estate_agency", "travel_agency", "post_office", "local_government_office"},
		keywords: []string{"office", "agency", "consulting", "services"},
	},
}

// ClassifyTags maps raw directory category tags to a business type. Unknown
// input classifies as TypeOther, never an error.
func ClassifyTags(tags []string) BusinessType {
	if len(tags) == 0 {
		return TypeOther
	}
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		seen[strings.ToLower(strings.TrimSpace(tag))] = struct{}{}
	}
	for _, rule := range classifierRules {
		for _, tag := range rule.tags {
			if _, ok := seen[tag]; ok {
				return rule.result
			}
		}
	}
	return TypeOther
}

// ClassifyName maps a free-text business name to a business type using the
// same ordered rule table as ClassifyTags.
func ClassifyName(name string) BusinessType {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return TypeOther
	}
	for _, rule := range classifierRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return rule.result
			}
		}
	}
	return TypeOther
}
