package analytics

import "strings"

// Theme is one named keyword set of the tourism taxonomy.
type Theme struct {
	Name     string
	Keywords []string
}

// Taxonomy is an ordered list of themes. Order matters only for keyword
// iteration tie-breaks; classification itself has set semantics.
type Taxonomy []Theme

// DefaultTaxonomy returns the fixed tourism taxonomy. It is static
// configuration: callers receive it once at startup and pass it into every
// classification call, never mutate it.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{Name: "Attractions Naturelles", Keywords: []string{
			"desert", "sahara", "dunes", "oasis", "valley",
			"atlas", "anti-atlas", "mountains", "high atlas", "middle atlas",
			"beach", "coast", "sea", "ocean", "waterfall", "agafay", "palm grove",
			"nature", "canyon", "gorge",
		}},
		{Name: "Sites Culturels", Keywords: []string{
			"medina", "kasbah", "kasbahs", "mosque", "koutoubia", "palace", "bahia",
			"el badi", "madrasa", "museum", "souk", "bazaar", "market", "hammam",
			"fortress", "ramparts", "ruins", "old town", "unesco site", "architecture",
		}},
		{Name: "Activités", Keywords: []string{
			"tour", "trip", "visit", "guide", "guided tour", "excursion",
			"trekking", "hiking", "quad", "camel ride", "camel trekking", "camping",
			"shopping", "exploring", "photography", "hammam",
			"surfing", "spa", "wellness", "cooking class", "henna", "yoga", "gnawa",
		}},
		{Name: "Hébergement", Keywords: []string{
			"hotel", "riad", "hostel", "guesthouse", "accommodation", "stay",
			"room", "suite", "lodge", "camp", "tent", "resort", "airbnb",
			"booking", "check-in", "check out", "reception",
		}},
		{Name: "Nourriture & Boissons", Keywords: []string{
			"food", "restaurant", "cuisine", "gastronomy", "tajine", "tagine",
			"couscous", "mint tea", "mint", "tea", "coffee", "street food",
			"bread", "mechoui", "pastilla", "sweets", "pastry", "breakfast",
			"dinner", "meal", "snack", "drink", "orange juice",
		}},
		{Name: "Transport", Keywords: []string{
			"airport", "flight", "train", "bus", "taxi", "car", "car rental",
			"driving", "tgv", "ctm", "supratours", "petit taxi", "grand taxi",
			"motorbike", "scooter", "road trip", "transport", "public transport",
		}},
		{Name: "Sécurité", Keywords: []string{
			"safety", "police", "emergency", "scam", "pickpocket", "theft",
			"travel advisory", "security check", "border control", "visa",
			"passport", "travel insurance", "health", "vaccination", "covid",
			"first aid", "local laws", "customs", "authorities", "crime",
			"safe areas", "unsafe areas", "night safety", "solo travel",
			"female travel", "child safety", "crowds", "protest", "demonstration",
		}},
	}
}

// Names returns the theme names in taxonomy order.
func (t Taxonomy) Names() []string {
	names := make([]string, len(t))
	for i, theme := range t {
		names[i] = theme.Name
	}
	return names
}

// Keywords returns the keyword list of the named theme, nil if unknown.
func (t Taxonomy) Keywords(name string) []string {
	for _, theme := range t {
		if theme.Name == name {
			return theme.Keywords
		}
	}
	return nil
}

// Classify returns the themes with at least one keyword occurring as a
// case-insensitive substring of text. Plain substring matching: a keyword
// like "tea" also hits inside longer words. That is the contract, not a bug.
func Classify(text string, taxonomy Taxonomy) []string {
	lower := strings.ToLower(text)

	var matched []string
	for _, theme := range taxonomy {
		for _, kw := range theme.Keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, theme.Name)
				break
			}
		}
	}
	return matched
}
