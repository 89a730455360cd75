package generation

import (
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

// Extraction is the outcome of reading an artifact from a provider envelope.
// When OK is false, Reason says why and Artifact is empty.
type Extraction struct {
	OK       bool
	Artifact string
	Reason   Reason
}

func extracted(s string) Extraction {
	s = strings.TrimSpace(s)
	if s == "" {
		return Extraction{Reason: ReasonEmptyOrMalformed}
	}
	return Extraction{OK: true, Artifact: s}
}

const chatContentPath = "choices.0.message.content"

// ExtractChatCompletion reads the first choice's message content from a raw
// chat-completions JSON body. Missing, non-string or blank content is malformed.
func ExtractChatCompletion(raw string) Extraction {
	if !gjson.Valid(raw) {
		return Extraction{Reason: ReasonEmptyOrMalformed}
	}
	res := gjson.Get(raw, chatContentPath)
	if !res.Exists() || res.Type != gjson.String {
		return Extraction{Reason: ReasonEmptyOrMalformed}
	}
	return extracted(res.String())
}

// ExtractGemini joins the text parts of the first candidate.
func ExtractGemini(resp *genai.GenerateContentResponse) Extraction {
	if resp == nil || len(resp.Candidates) == 0 {
		return Extraction{Reason: ReasonEmptyOrMalformed}
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return Extraction{Reason: ReasonEmptyOrMalformed}
	}

	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return extracted(b.String())
}
