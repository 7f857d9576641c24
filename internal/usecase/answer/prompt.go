package answer

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

const systemPrompt = `You are a helpful tutor for the Physical AI & Humanoid Robotics textbook.

Your role:
- Answer questions ONLY based on the provided textbook content
- If the answer is not in the provided context, say so clearly
- Cite specific sections when referencing information
- Be educational and encouraging
- Explain technical concepts clearly

Important:
- Do NOT make up information not in the context
- Do NOT answer questions unrelated to physical AI, robotics, ROS 2, simulation, or VLA
- If asked about topics outside the textbook scope, politely redirect to the textbook content

Format guidelines:
- Use markdown for formatting when helpful
- Include code examples if relevant to the question
- Keep responses focused and concise`

// buildContextBlock renders retrieved units as a delimited grounding block.
// Full unit content goes in, never the display excerpt.
func buildContextBlock(results []domain.RetrievalResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("**%s** (Chapter: %s)\n%s",
			r.Unit.Section(), r.Unit.DocumentID, r.Unit.Content))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// buildUserMessage assembles the grounded question message.
func buildUserMessage(question, highlightedText string, results []domain.RetrievalResult) string {
	msg := fmt.Sprintf("## Textbook Context\n\n%s\n\n---\n\n## Question\n\n%s",
		buildContextBlock(results), question)
	if highlightedText != "" {
		msg = fmt.Sprintf("## Highlighted Text\n\n%s\n\n%s", highlightedText, msg)
	}
	return msg
}
