package processing

import (
	"strings"

	"github.com/DeafMist/story-radar/backend/internal/models"
)

// categoryKeywords drive Classify. Phrases are matched as substrings of
// the lower-cased title and summary.
var categoryKeywords = []struct {
	category models.Category
	keywords []string
}{
	{models.CategoryPolitics, []string{
		"legislature", "senator", "representative", "governor", "mayor", "bill", "law",
		"election", "vote", "campaign", "democrat", "republican", "council", "committee",
		"testimony", "hearing", "oha", "dhhl", "sovereignty", "ceded lands", "crown lands",
		"federal", "state", "county", "city council", "house", "senate", "capitol",
	}},
	{models.CategoryBusiness, []string{
		"economy", "business", "company", "corporation", "stock", "investment", "revenue",
		"profit", "loss", "employment", "jobs", "layoff", "hiring", "startup", "entrepreneur",
		"real estate", "development", "construction", "hotel", "resort", "retail", "tourism",
		"airline", "hawaiian airlines", "agriculture", "export", "import", "trade",
	}},
	{models.CategoryEnvironment, []string{
		"environment", "climate", "ocean", "coral", "reef", "conservation", "endangered",
		"wildlife", "species", "pollution", "renewable", "solar", "wind", "energy",
		"sustainability", "watershed", "forest", "invasive", "native", "ecosystem",
		"sea level", "carbon", "emissions", "volcano", "lava", "earthquake", "tsunami",
	}},
	{models.CategoryCommunity, []string{
		"community", "neighborhood", "school", "education", "student", "university",
		"culture", "festival", "event", "celebration", "arts", "music", "hula",
		"merrie monarch", "aloha", "ohana", "keiki", "kupuna", "nonprofit", "volunteer",
		"church", "temple", "health", "hospital", "medical", "sports", "athletics",
	}},
	{models.CategoryEmergency, []string{
		"fire", "wildfire", "hurricane", "storm", "flood", "emergency", "evacuation",
		"rescue", "police", "crime", "accident", "crash", "traffic", "road closure",
		"power outage", "water", "alert", "warning", "missing", "death", "fatal",
	}},
	{models.CategoryMilitary, []string{
		"military", "army", "navy", "air force", "marine", "coast guard", "pearl harbor",
		"schofield", "hickam", "kaneohe", "pohakuloa", "base", "rimpac", "veterans",
		"defense", "pacific command", "indo-pacific",
	}},
}

// Classify picks the category whose keyword table has the most hits in
// the title and summary. The first category in table order wins ties;
// no hits at all yields general.
func Classify(title, summary string) models.Category {
	text := strings.ToLower(title + " " + summary)

	best := models.CategoryGeneral
	bestScore := 0
	for _, entry := range categoryKeywords {
		score := 0
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = entry.category, score
		}
	}
	return best
}
