package answer

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/notelace/notelace/internal/document"
)

// QuestionCount is how many questions both suggestion and follow-up
// generation produce.
const QuestionCount = 3

// genericQuestions are served when the knowledge base is empty; asking the
// model to invent questions about zero notes is pointless.
var genericQuestions = []string{
	"What can I do with this knowledge base?",
	"How do I link notes to each other?",
	"How does searching my notes work?",
}

const suggestSystemPrompt = `You generate short, curious questions a user might ask about their own notes.
Each question must be answerable from the note excerpts provided.
Return exactly one question per line, with no numbering and no extra text.`

const followUpSystemPrompt = `You suggest natural follow-up questions for a conversation about the user's notes.
Each question must stay on the topic of the exchange provided.
Return exactly one question per line, with no numbering and no extra text.`

// SuggestedQuestions proposes questions to seed an empty chat box. It
// samples a few random notes and asks the model for one question per note.
// With no notes stored, or when generation fails, a fixed generic set is
// returned instead; this method never errors.
func (e *Engine) SuggestedQuestions(ctx context.Context) []string {
	sampled, err := e.store.Sample(ctx, QuestionCount)
	if err != nil {
		e.logger.Warn("sampling notes for suggested questions failed", "error", err)
		return genericQuestions
	}
	if len(sampled) == 0 {
		return genericQuestions
	}

	var b strings.Builder
	for i, n := range sampled {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, n.Title,
			truncateRunes(extractedOrTitle(n.Content, n.Title), contextNoteMaxRunes))
	}
	prompt := fmt.Sprintf("Note excerpts:\n\n%sGenerate %d questions.", b.String(), QuestionCount)

	text, err := e.gen.Generate(ctx, GenerateRequest{
		System: suggestSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		e.logger.Warn("suggested question generation failed", "error", err)
		return genericQuestions
	}

	questions := parseQuestionList(text)
	if len(questions) == 0 {
		return genericQuestions
	}
	return questions
}

// FollowUps proposes follow-up questions after an answered exchange. Any
// failure yields an empty list; follow-ups are decoration, never worth an
// error to the caller.
func (e *Engine) FollowUps(ctx context.Context, question, answer string) []string {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return nil
	}

	prompt := fmt.Sprintf("Question: %s\n\nAnswer: %s\n\nGenerate %d follow-up questions.",
		question, truncateRunes(answer, contextNoteMaxRunes), QuestionCount)

	text, err := e.gen.Generate(ctx, GenerateRequest{
		System: followUpSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		e.logger.Warn("follow-up generation failed", "error", err)
		return nil
	}
	return parseQuestionList(text)
}

// parseQuestionList splits model output into individual questions,
// stripping list markers the model tends to add despite instructions, and
// caps the result at QuestionCount.
func parseQuestionList(text string) []string {
	var questions []string
	for line := range strings.Lines(text) {
		q := stripListMarker(strings.TrimSpace(line))
		if q == "" {
			continue
		}
		questions = append(questions, q)
		if len(questions) == QuestionCount {
			break
		}
	}
	return questions
}

// stripListMarker removes a leading "1.", "2)", "-", "*", or "•" marker.
func stripListMarker(line string) string {
	rest := strings.TrimLeft(line, "-*• \t")
	i := 0
	for i < len(rest) && unicode.IsDigit(rune(rest[i])) {
		i++
	}
	if i > 0 && i < len(rest) && (rest[i] == '.' || rest[i] == ')') {
		rest = rest[i+1:]
	}
	return strings.TrimSpace(rest)
}

// extractedOrTitle flattens note content, falling back to the title for
// notes whose body yields no text.
func extractedOrTitle(content []byte, title string) string {
	if text := document.ExtractText(content); text != "" {
		return text
	}
	return title
}
