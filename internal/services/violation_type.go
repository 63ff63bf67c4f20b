package services

import "strings"

// ViolationTypeGeneral is the fallback bucket when no rule matches.
const ViolationTypeGeneral = "general"

type violationTypeRule struct {
	Type     string
	Keywords []string
}

// Rule order is significant: descriptions often contain several keywords and
// the first matching rule wins. "elev" catches DOB device identifiers like
// ELEV12345.
var violationTypeRules = []violationTypeRule{
	{Type: "elevator", Keywords: []string{"elevator", "elev"}},
	{Type: "facade", Keywords: []string{"facade", "fisp", "local law 11", "exterior wall"}},
	{Type: "sprinkler", Keywords: []string{"sprinkler", "standpipe"}},
	{Type: "boiler", Keywords: []string{"boiler"}},
	{Type: "electrical", Keywords: []string{"electrical", "wiring"}},
	{Type: "plumbing", Keywords: []string{"plumbing", "gas piping", "water supply"}},
	{Type: "fire_safety", Keywords: []string{"fire", "smoke detector", "carbon monoxide", "egress"}},
	{Type: "construction", Keywords: []string{"construction", "permit", "work without", "scaffold"}},
	{Type: "zoning", Keywords: []string{"zoning", "certificate of occupancy", "illegal use"}},
	{Type: "lead_paint", Keywords: []string{"lead paint", "lead-based", "lead hazard"}},
}

// ClassifyViolationType infers a coarse violation bucket from an item
// identifier and its free text. Pure and deterministic.
func ClassifyViolationType(identifier, freeText string) string {
	text := strings.ToLower(identifier + " " + freeText)
	for _, rule := range violationTypeRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Type
			}
		}
	}
	return ViolationTypeGeneral
}

// violationTypeKeywords returns the match keywords for a violation type,
// including the type name itself with underscores spelled as spaces. Used to
// filter synthesis exemplars by topic.
func violationTypeKeywords(violationType string) []string {
	keywords := []string{strings.ReplaceAll(violationType, "_", " ")}
	for _, rule := range violationTypeRules {
		if rule.Type == violationType {
			keywords = append(keywords, rule.Keywords...)
			break
		}
	}
	return keywords
}
