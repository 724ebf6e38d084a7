package normalize

import (
	"strings"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

type categoryRule struct {
	category engine.Category
	keywords []string
}

// Ordered, first match wins. Specific service lines come before the broad
// professional-services bucket so "cybersecurity assessment" lands in
// cybersecurity rather than professional-services.
var categoryRules = []categoryRule{
	{engine.CategoryITConsulting, []string{
		"it assessment", "technology assessment", "it consulting", "digital transformation",
		"it modernization", "technology roadmap", "enterprise architecture", "it strategic plan",
	}},
	{engine.CategoryCybersecurity, []string{
		"cybersecurity", "cyber security", "security audit", "penetration testing",
		"vulnerability", "security assessment", "incident response",
	}},
	{engine.CategorySoftware, []string{
		"erp", "software implementation", "system implementation", "software development",
		"application development", "licensing",
	}},
	{engine.CategoryCloud, []string{
		"cloud", "aws", "azure", "data center", "infrastructure",
	}},
	{engine.CategoryData, []string{
		"data analytics", "business intelligence", "data governance", "data warehouse",
		"database", "reporting", "dashboard",
	}},
	{engine.CategoryProfessionalServices, []string{
		"consulting", "advisory", "assessment", "feasibility study", "analysis",
		"strategic planning", "program review",
	}},
}

// InferCategory classifies an opportunity from its title and description.
func InferCategory(title, description string) engine.Category {
	text := strings.ToLower(title + " " + description)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return engine.CategoryOther
}
