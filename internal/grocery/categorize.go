package grocery

import (
	"sort"
	"strings"
)

// DefaultCategory is used when no keyword matches.
const DefaultCategory = "Other"

// Categorize guesses the grocery aisle for an item name. Matching is
// case-insensitive: an exact name match wins, then the longest keyword that
// appears as a substring.
func Categorize(itemName string) string {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return DefaultCategory
	}

	if cat, ok := exactIndex[name]; ok {
		return cat
	}
	for _, k := range keywordIndex {
		if strings.Contains(name, k.keyword) {
			return k.category
		}
	}
	return DefaultCategory
}

// categoryKeywords drives both match phases. Singular keywords double as
// substrings ("apple" also matches "apples" and "apple juice" would be
// caught earlier by its own longer keyword).
var categoryKeywords = map[string][]string{
	"Produce": {
		"apple", "banana", "orange", "lemon", "lime", "avocado", "tomato",
		"potato", "sweet potato", "onion", "green onion", "garlic", "lettuce",
		"romaine", "arugula", "spinach", "baby spinach", "kale", "broccoli",
		"cauliflower", "cabbage", "carrot", "celery", "cucumber", "pepper",
		"bell pepper", "jalapeño", "mushroom", "corn", "zucchini", "squash",
		"asparagus", "green beans", "grape", "strawberries", "blueberries",
		"raspberries", "berry", "berries", "melon", "watermelon", "pineapple",
		"mango", "peach", "pear", "cherry tomato", "salad mix", "cilantro",
		"basil", "parsley", "herb", "ginger", "fruit",
	},
	"Dairy": {
		"milk", "almond milk", "oat milk", "egg", "butter", "cheese",
		"cream cheese", "cottage cheese", "yogurt", "greek yogurt", "cream",
		"sour cream", "heavy cream", "half and half",
	},
	"Meat & Seafood": {
		"chicken", "chicken breast", "chicken thigh", "chicken wing", "beef",
		"ground beef", "pork", "pork chop", "turkey", "ground turkey", "bacon",
		"sausage", "ham", "steak", "lamb", "hot dog", "deli meat", "salmon",
		"shrimp", "tuna", "fish", "tilapia", "crab", "lobster",
	},
	"Bakery": {
		"bread", "sourdough", "whole wheat", "bagel", "tortilla", "roll",
		"bun", "muffin", "croissant", "pita",
	},
	"Pantry": {
		"rice", "pasta", "spaghetti", "noodle", "flour", "sugar", "salt",
		"oil", "olive oil", "coconut oil", "vinegar", "soy sauce", "ketchup",
		"mustard", "mayonnaise", "honey", "maple syrup", "peanut butter",
		"jelly", "jam", "cereal", "oatmeal", "granola", "canned", "soup",
		"broth", "stock", "bean", "lentil", "nuts", "almonds", "hot sauce",
		"pasta sauce", "tomato sauce", "salsa", "sauce", "spice", "seasoning",
	},
	"Frozen": {
		"frozen", "ice cream", "popsicle",
	},
	"Beverages": {
		"water", "sparkling water", "juice", "orange juice", "apple juice",
		"coffee", "tea", "soda", "lemonade", "kombucha", "beer", "wine",
		"drink",
	},
	"Snacks": {
		"chip", "cracker", "cookie", "popcorn", "pretzel", "granola bar",
		"trail mix", "candy", "chocolate", "fruit snack", "snack",
	},
	"Household": {
		"paper towel", "toilet paper", "trash bag", "garbage bag", "dish soap",
		"laundry", "detergent", "sponge", "foil", "plastic wrap", "ziplock",
		"napkin", "cleaner", "cleaning", "bleach", "battery", "light bulb",
	},
	"Personal Care": {
		"shampoo", "conditioner", "soap", "body wash", "toothpaste",
		"toothbrush", "deodorant", "lotion", "sunscreen", "floss", "razor",
		"tissue", "band-aid",
	},
}

type keywordEntry struct {
	keyword  string
	category string
}

var (
	exactIndex   = map[string]string{}
	keywordIndex []keywordEntry
)

func init() {
	for category, keywords := range categoryKeywords {
		for _, k := range keywords {
			exactIndex[k] = category
			if !strings.HasSuffix(k, "s") {
				exactIndex[k+"s"] = category
			}
			keywordIndex = append(keywordIndex, keywordEntry{keyword: k, category: category})
		}
	}
	// Longest keyword first so "peanut butter" beats "butter"; ties broken
	// alphabetically to keep the order deterministic across builds.
	sort.Slice(keywordIndex, func(i, j int) bool {
		a, b := keywordIndex[i], keywordIndex[j]
		if len(a.keyword) != len(b.keyword) {
			return len(a.keyword) > len(b.keyword)
		}
		return a.keyword < b.keyword
	})
}
