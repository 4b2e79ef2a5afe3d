package advisor

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/templui/fractional/internal/markdown"
	"github.com/templui/fractional/internal/model"
)

//go:embed prompts/*.md
var promptFS embed.FS

// Prompt is the system prompt and sampling settings for one conversation
// type.
type Prompt struct {
	ConversationType string
	Title            string
	Temperature      float64
	MaxTokens        int
	System           string
}

// LoadPrompts reads every embedded prompt. Each file declares its
// conversation_type in the frontmatter.
func LoadPrompts(parser *markdown.Parser) (map[string]Prompt, error) {
	return loadPrompts(promptFS, "prompts", parser)
}

func loadPrompts(fsys fs.FS, dir string, parser *markdown.Parser) (map[string]Prompt, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}

	prompts := make(map[string]Prompt, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		source, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt %s: %w", entry.Name(), err)
		}

		doc := parser.ParseDocument(source)
		p := Prompt{
			ConversationType: metaString(doc.Meta, "conversation_type"),
			Title:            metaString(doc.Meta, "title"),
			Temperature:      metaFloat(doc.Meta, "temperature"),
			MaxTokens:        int(metaFloat(doc.Meta, "max_tokens")),
			System:           doc.Body,
		}

		if !model.IsValidConversationType(p.ConversationType) {
			return nil, fmt.Errorf("prompt %s: unknown conversation type %q", entry.Name(), p.ConversationType)
		}
		if p.System == "" {
			return nil, fmt.Errorf("prompt %s: empty body", entry.Name())
		}

		prompts[p.ConversationType] = p
	}

	if _, ok := prompts[model.ConversationGeneral]; !ok {
		return nil, fmt.Errorf("missing %s prompt", model.ConversationGeneral)
	}

	return prompts, nil
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func metaFloat(meta map[string]any, key string) float64 {
	switch v := meta[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
