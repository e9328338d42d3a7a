package scoring

// Category identifies one weighted scoring category.
type Category string

const (
	CategorySMBFocus          Category = "smb-ai-focus"
	CategoryImplementation    Category = "implementation"
	CategoryCostAccessibility Category = "cost-accessibility"
	CategoryIndustryContext   Category = "industry-context"
)

// weightedCategory binds a keyword list to its share of the base score.
type weightedCategory struct {
	name     Category
	weight   float64
	keywords []string
}

// Ordered by priority; weights sum to 1.0.
var weightedCategories = []weightedCategory{
	{
		name:   CategorySMBFocus,
		weight: 0.4,
		keywords: []string{
			"small business", "smb", "solopreneur", "freelancer", "startup",
			"entrepreneur", "business owner", "self-employed", "independent",
			"consulting", "agency", "automation", "productivity", "efficiency",
			"workflow",
		},
	},
	{
		name:   CategoryImplementation,
		weight: 0.3,
		keywords: []string{
			"how to", "guide", "tutorial", "case study", "example",
			"implementation", "setup", "getting started", "best practice",
			"step by step", "walkthrough", "integrate", "deploy", "use case",
			"solution",
		},
	},
	{
		name:   CategoryCostAccessibility,
		weight: 0.2,
		keywords: []string{
			"free", "pricing", "affordable", "cost-effective", "budget",
			"subscription", "plan", "trial", "roi", "investment", "value",
			"save money", "reduce costs", "price comparison", "cost-benefit",
		},
	},
	{
		name:   CategoryIndustryContext,
		weight: 0.1,
		keywords: []string{
			"ai tool", "platform update", "new feature", "improvement",
			"integration", "api", "compatibility", "security update",
			"performance", "optimization",
		},
	},
}

// screeningGroups must see at least one hit before weighted scoring runs.
var screeningGroups = []struct {
	name  string
	terms []string
}{
	{
		name: "audience",
		terms: []string{
			"small business", "smb", "solopreneur", "freelancer", "startup",
			"business owner", "entrepreneur", "self-employed",
		},
	},
	{
		name: "practical",
		terms: []string{
			"automation", "workflow", "productivity", "tool", "solution",
			"platform", "integration", "implement",
		},
	},
	{
		name: "cost",
		terms: []string{
			"pricing", "cost", "free", "affordable", "budget",
			"subscription", "plan", "roi", "save",
		},
	},
}

// qualityIndicators feed the capped quality multiplier.
var qualityIndicators = [][]string{
	// actionable
	{
		"step by step", "how to", "implement", "setup guide", "tutorial",
		"walkthrough", "quick start", "get started", "example code",
		"sample project",
	},
	// practical
	{
		"real world", "use case", "case study", "success story",
		"problem solved", "solution", "improvement", "results", "benefit",
		"outcome",
	},
	// cost-effective
	{
		"cost reduction", "save money", "affordable", "roi", "investment",
		"budget friendly", "pricing plan", "free tier", "cost comparison",
		"value for money",
	},
	// clear-explanation
	{
		"simple", "straightforward", "easy to follow", "beginner friendly",
		"explained", "breakdown", "overview", "introduction", "basics",
		"fundamentals",
	},
}

// contentCategories maps adapter tags to the scoring tables they reuse.
var contentCategories = []struct {
	tag  string
	from Category
}{
	{tag: "ai-tools", from: CategorySMBFocus},
	{tag: "business-ops", from: CategoryCostAccessibility},
	{tag: "implementation", from: CategoryImplementation},
	{tag: "industry-news", from: CategoryIndustryContext},
}

func keywordsFor(c Category) []string {
	for _, wc := range weightedCategories {
		if wc.name == c {
			return wc.keywords
		}
	}
	return nil
}
