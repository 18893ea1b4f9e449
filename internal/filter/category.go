package filter

import (
	"regexp"
	"strings"
)

// Category names, in decision-table order.
const (
	CategoryInvestmentBanking = "Investment Banking"
	CategorySalesTrading      = "Sales & Trading"
	CategoryRiskCompliance    = "Risk & Compliance"
	CategoryTechnology        = "Technology"
	CategoryWealthManagement  = "Wealth Management"
	CategoryResearch          = "Research"
	CategoryOperations        = "Operations"
	CategoryCorporateBanking  = "Corporate Banking"
	CategoryFinance           = "Finance"
	CategoryHumanResources    = "Human Resources"
	CategoryLegal             = "Legal"
	CategoryQuantitative      = "Quantitative"
	CategoryOther             = "Other"
)

type categoryRule struct {
	name     string
	keywords []string
	pattern  *regexp.Regexp
}

func (r categoryRule) matches(t string) bool {
	if r.pattern != nil && r.pattern.MatchString(t) {
		return true
	}
	for _, kw := range r.keywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// Ordered; the first matching rule wins.
var categoryRules = []categoryRule{
	{name: CategoryInvestmentBanking, pattern: investBankRegex, keywords: []string{"ibd", "m&a", "leveraged finance", "ecm", "dcm"}},
	{name: CategorySalesTrading, keywords: []string{"sales & trading", "sales and trading", "trading", "markets", "fixed income", "equities", "securities", "commodit"}},
	{name: CategoryRiskCompliance, keywords: []string{"risk", "compliance", "audit", "regulatory"}},
	{name: CategoryTechnology, keywords: []string{"technolog", "engineer", "developer", "software", "data sci", "cyber", "cloud"}},
	{name: CategoryWealthManagement, keywords: []string{"wealth", "asset manage", "private bank", "private client", "portfolio"}},
	{name: CategoryResearch, keywords: []string{"research", "economist"}},
	{name: CategoryOperations, pattern: opsWordRegex, keywords: []string{"operations", "middle office", "back office"}},
	{name: CategoryCorporateBanking, keywords: []string{"corporate bank", "commercial bank", "lending", "loan", "credit"}},
	{name: CategoryFinance, keywords: []string{"finance", "accounting", "controller", "treasury", "tax"}},
	{name: CategoryHumanResources, keywords: []string{"human resources", "talent", "recruiting"}},
	{name: CategoryLegal, keywords: []string{"legal", "counsel"}},
	{name: CategoryQuantitative, keywords: []string{"quantitative", "quant ", "strats"}},
}

// Categorize infers a category from a job title.
func Categorize(title string) string {
	t := strings.ToLower(title)
	for _, rule := range categoryRules {
		if rule.matches(t) {
			return rule.name
		}
	}
	return CategoryOther
}
