package ai

import (
	"fmt"
	"strings"

	"github.com/pickmecinime/cinime/backend/internal/model/persona"
)

// BuildSystemInstruction renders the persona into the instruction sent when
// a chat is opened.
func BuildSystemInstruction(p persona.Persona) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s", p.Name)
	if p.Title != "" {
		fmt.Fprintf(&b, ", %s", p.Title)
	}
	b.WriteString(".")
	if p.Description != "" {
		b.WriteString(" " + p.Description)
	}
	b.WriteString("\n")

	for i, rule := range p.Rules {
		fmt.Fprintf(&b, "\n%d. **%s**:\n", i+1, rule.Heading)
		for _, point := range rule.Points {
			fmt.Fprintf(&b, "   - %s\n", point)
		}
	}

	if p.Tone != "" {
		fmt.Fprintf(&b, "\nAlways stay %s.", p.Tone)
	}
	b.WriteString("\nLet's make movie discovery fun!")
	return b.String()
}
