package prompts

import (
	"fmt"
	"strings"
)

// ClaimSEOSystemMessage frames the model as an editor, not a fact checker.
const ClaimSEOSystemMessage = "You write search-engine metadata for a public claim-verification site. " +
	"You never state whether a claim is true; you describe where the community evidence currently leans. " +
	"Respond with JSON only."

// ClaimSEOContext is the input that determines a claim's SEO metadata.
type ClaimSEOContext struct {
	Title       string
	Category    string
	LeadingSide string // "for", "against", or "" when evidence is balanced
}

// BuildClaimSEOPrompt creates the prompt for SEO title and description generation.
func BuildClaimSEOPrompt(c ClaimSEOContext, maxTitle, maxDescription int) string {
	var prompt strings.Builder

	prompt.WriteString("# Claim SEO Metadata\n\n")
	prompt.WriteString("## Claim\n\n")
	prompt.WriteString(fmt.Sprintf("- **Title**: %s\n", c.Title))
	if c.Category != "" {
		prompt.WriteString(fmt.Sprintf("- **Category**: %s\n", c.Category))
	}

	switch c.LeadingSide {
	case "for":
		prompt.WriteString("- **Evidence currently leans**: supporting the claim\n")
	case "against":
		prompt.WriteString("- **Evidence currently leans**: refuting the claim\n")
	default:
		prompt.WriteString("- **Evidence currently leans**: neither side (balanced or no evidence yet)\n")
	}

	prompt.WriteString("\n## Rules\n\n")
	prompt.WriteString(fmt.Sprintf("- seo_title: at most %d characters, include the claim's key terms\n", maxTitle))
	prompt.WriteString(fmt.Sprintf("- seo_description: at most %d characters, mention the direction of the evidence\n", maxDescription))
	prompt.WriteString("- Do not invent sources, numbers or verdicts\n\n")

	prompt.WriteString("## Response Format\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString("{\"seo_title\": \"...\", \"seo_description\": \"...\"}\n")
	prompt.WriteString("```\n")

	return prompt.String()
}
