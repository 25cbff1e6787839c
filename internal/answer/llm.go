package answer

import (
	"context"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"
)

// GenerateRequest carries one text generation call. Temperature is
// optional; nil leaves the model default in place.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature *float32
}

// TextGenerator abstracts the language model. Production uses the
// genkit-backed Generator; tests substitute a mock.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Generator is the genkit-backed TextGenerator.
type Generator struct {
	g     *genkit.Genkit
	model string
}

// NewGenerator creates a Generator bound to a model name, e.g.
// "googleai/gemini-2.5-flash".
func NewGenerator(g *genkit.Genkit, model string) *Generator {
	return &Generator{g: g, model: model}
}

// Generate runs one prompt through the model and returns the trimmed
// response text.
func (gen *Generator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(gen.model),
		ai.WithPrompt(req.Prompt),
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}
	if req.Temperature != nil {
		opts = append(opts, ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(*req.Temperature),
		}))
	}

	resp, err := genkit.Generate(ctx, gen.g, opts...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}
