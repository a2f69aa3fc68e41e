// Package brand simulates how well-known consumer brands would react to a
// trend, so a post can be positioned against the expected noise.
package brand

// Profile is a brand voice with real posts used as few-shot examples.
type Profile struct {
	Name        string   `json:"name"`
	Tactics     []string `json:"tactics"`
	Examples    []string `json:"real_examples"`
	PostStyle   string   `json:"post_style"`
	Personality string   `json:"personality"`
}

var profiles = []Profile{
	{
		Name:        "DoorDash",
		Tactics:     []string{"discount_codes", "number_references", "delivery_puns", "speed_claims"},
		Examples:    []string{"13% off with code THIRTEEN", "Special delivery for love stories", "We deliver happiness faster than Swift news", "Delivering hot takes and cold drinks since day one"},
		PostStyle:   "Punny, promotional, delivery-focused",
		Personality: "Helpful but witty, always ties back to delivery/speed",
	},
	{
		Name:        "Panera",
		Tactics:     []string{"food_puns", "wordplay", "product_integration", "wholesome_messaging"},
		Examples:    []string{"Its a loaf story, baby, just say yeast", "Bread-y for love", "Sourdough and so in love", "This news has us feeling all warm and toasty inside"},
		PostStyle:   "Food puns, wholesome, bread-focused wordplay",
		Personality: "Warm, punny, family-friendly with bread/baking focus",
	},
	{
		Name:        "Starbucks",
		Tactics:     []string{"product_mentions", "seasonal_tie_ins", "casual_commentary", "lifestyle_content"},
		Examples:    []string{"Are we supposed to keep talking about PSL like nothing happened???", "Love is brewing", "This calls for a celebration drink", "Nothing pairs better with good news than your favorite drink"},
		PostStyle:   "Casual, lifestyle-focused, drink tie-ins",
		Personality: "Trendy, relatable, always connects to coffee/drinks culture",
	},
	{
		Name:        "SourPatchKids",
		Tactics:     []string{"emotional_reactions", "caps_enthusiasm", "personality_driven", "sour_sweet_metaphors"},
		Examples:    []string{"SUDDENLY I BELIEVE IN LOVE!!!!!!!!!!!!!!!", "SWEET then SOUR then SWEET AGAIN", "First they were sour, now theyre ENGAGED", "This news has us going from sour to sweet REAL QUICK"},
		PostStyle:   "High energy, caps, emotional reactions",
		Personality: "Extremely enthusiastic, uses sour/sweet metaphors, very excitable",
	},
	{
		Name:        "Wendys",
		Tactics:     []string{"sassy_commentary", "competitor_shade", "viral_participation", "roasting"},
		Examples:    []string{"Our Twitter engagement rate > their engagement ring", "Still serving hot takes and cold drinks", "Spicy take: This is cute", "At least someone has good taste"},
		PostStyle:   "Sassy, confident, competitive shade",
		Personality: "Witty roaster, competitive, never misses a chance for shade",
	},
	{
		Name:        "Nike",
		Tactics:     []string{"motivational_tie_ins", "just_do_it_variations", "athlete_connections", "inspirational_messaging"},
		Examples:    []string{"Just Do It... together", "Love wins. Always.", "Champions on and off the field", "Greatness comes in all forms"},
		PostStyle:   "Motivational, inspiring, sports-focused",
		Personality: "Inspirational, athletic, focuses on achievement and perseverance",
	},
	{
		Name:        "Target",
		Tactics:     []string{"product_suggestions", "lifestyle_content", "shopping_tie_ins", "trendy_commentary"},
		Examples:    []string{"Wedding planning essentials in aisle 12", "Target run for engagement party supplies?", "Love is our favorite trend", "Adding this to our inspiration board"},
		PostStyle:   "Shopping-focused, lifestyle, helpful suggestions",
		Personality: "Helpful, trendy, always suggests products, lifestyle-focused",
	},
	{
		Name:        "Arby's",
		Tactics:     []string{"pop_culture_references", "visual_puns", "meat_puns", "clever_observations"},
		Examples:    []string{"Can we have our hat back?", "We have the meats", "Arby's: We Have The Meats... and the references", "This looks familiar..."},
		PostStyle:   "Pop culture savvy, visual references, meat-focused",
		Personality: "Pop culture expert, observational, always ties to meat/food",
	},
	{
		Name:        "MoonPie",
		Tactics:     []string{"snarky_observations", "deadpan_humor", "cosmic_references", "simple_commentary"},
		Examples:    []string{"lol ok", "Looks like a MoonPie", "We see you", "Same energy"},
		PostStyle:   "Deadpan, snarky, minimal words, cosmic references",
		Personality: "Deadpan humor, snarky, uses minimal words for maximum impact",
	},
	{
		Name:        "Denny's",
		Tactics:     []string{"weird_humor", "late_night_references", "absurdist_content", "meme_participation"},
		Examples:    []string{"zoom in on the syrup", "2am thoughts hit different", "This is fine *pancakes on fire*", "POV: You're a pancake at 3am"},
		PostStyle:   "Weird, absurdist, late-night focused, meme-heavy",
		Personality: "Weird, absurdist, late-night energy, embraces chaos",
	},
}

// engagementMultipliers scale simulated engagement by brand personality.
var engagementMultipliers = map[string]float64{
	"Extremely enthusiastic, uses sour/sweet metaphors, very excitable": 2.0,
	"Witty roaster, competitive, never misses a chance for shade":       1.8,
	"Deadpan humor, snarky, uses minimal words for maximum impact":      1.6,
	"Weird, absurdist, late-night energy, embraces chaos":               1.5,
	"Pop culture expert, observational, always ties to meat/food":       1.4,
	"Trendy, relatable, always connects to coffee/drinks culture":       1.3,
	"Helpful but witty, always ties back to delivery/speed":             1.2,
	"Inspirational, athletic, focuses on achievement and perseverance":  1.1,
	"Warm, punny, family-friendly with bread/baking focus":              1.0,
	"Helpful, trendy, always suggests products, lifestyle-focused":      1.0,
}

// Profiles returns a copy of the built-in brand profiles.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Lookup finds a profile by name.
func Lookup(name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}
