package usecase

import (
	"fmt"
	"strings"

	"law-rag/internal/domain"
)

// PromptInput contains the pieces that feed into the generation prompt.
type PromptInput struct {
	Question string
	Chunks   []domain.Chunk
	History  []domain.Turn
}

// PromptBuilder composes the chat messages sent to the generator.
type PromptBuilder interface {
	Build(input PromptInput) ([]domain.Message, error)
}

// LegalPromptBuilder produces a sectioned prompt that restricts the model to
// the supplied statute articles and asks for Arabic answers with article
// citations.
type LegalPromptBuilder struct{}

// NewLegalPromptBuilder creates the default prompt builder.
func NewLegalPromptBuilder() PromptBuilder {
	return &LegalPromptBuilder{}
}

// Build renders the system and user messages. The instructions require the
// model to answer ONLY from the provided articles and to cite article numbers
// in every claim.
func (b *LegalPromptBuilder) Build(input PromptInput) ([]domain.Message, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	if len(input.Chunks) == 0 {
		return nil, fmt.Errorf("at least one context article is required")
	}

	var sys strings.Builder
	sys.WriteString("أنت مساعد قانوني متخصص في القوانين العربية.\n")
	sys.WriteString("<instructions>\n")
	sys.WriteString("1. أجب على السؤال اعتماداً على النصوص القانونية في <context> فقط، دون أي معلومات خارجية.\n")
	sys.WriteString("2. اذكر رقم المادة واسم القانون عند كل استشهاد، بصيغة (مادة N - اسم القانون).\n")
	sys.WriteString("3. إذا لم تكن النصوص المتاحة كافية للإجابة فقل ذلك صراحة ولا تخمن.\n")
	sys.WriteString("4. أجب باللغة العربية الفصحى وبأسلوب واضح ومنظم.\n")
	sys.WriteString("</instructions>\n")

	var user strings.Builder
	user.WriteString("<context>\n")
	for i, chunk := range input.Chunks {
		fmt.Fprintf(&user, "<article index=\"%d\" citation=\"%s\">\n", i+1, chunk.Citation())
		user.WriteString(chunk.DisplayText)
		user.WriteString("\n</article>\n")
	}
	user.WriteString("</context>\n")

	if len(input.History) > 0 {
		user.WriteString("<history>\n")
		for _, turn := range input.History {
			user.WriteString("المستخدم: ")
			user.WriteString(turn.Question)
			user.WriteString("\nالمساعد: ")
			user.WriteString(turn.Answer)
			user.WriteString("\n")
		}
		user.WriteString("</history>\n")
	}

	user.WriteString("<query>\n")
	user.WriteString(input.Question)
	user.WriteString("\n</query>")

	return []domain.Message{
		{Role: "system", Content: sys.String()},
		{Role: "user", Content: user.String()},
	}, nil
}
