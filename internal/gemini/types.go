// Package gemini provides an HTTP client for asking the Gemini
// generateContent API whether an audio clip announces one of a list of
// chapter titles.
package gemini

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// DefaultBaseURL is the public Generative Language API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const systemInstruction = "I will give you an audio snippet and a list of possible chapter titles. " +
	"You respond in json tell me if one of those chapters is present in the audio clip and if so, which one"

// MatchRequest is one clip to classify.
type MatchRequest struct {
	Audio    []byte   // encoded clip bytes
	MIMEType string   // e.g. audio/mp3
	Titles   []string // candidate chapter titles
}

// Match is the decoded service answer. Missing fields decode to their zero
// values, so an absent containsChapter reads as false.
type Match struct {
	ContainsChapter bool   `json:"containsChapter"`
	Chapter         string `json:"chapter"`
}

type generateRequest struct {
	SystemInstruction content          `json:"system_instruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	TopK             int     `json:"topK"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType"`
	ResponseSchema   schema  `json:"responseSchema"`
}

type schema struct {
	Type       string            `json:"type"`
	Required   []string          `json:"required,omitempty"`
	Properties map[string]schema `json:"properties,omitempty"`
}

// matchSchema constrains the model output to {containsChapter, chapter}.
var matchSchema = schema{
	Type:     "OBJECT",
	Required: []string{"containsChapter"},
	Properties: map[string]schema{
		"containsChapter": {Type: "BOOLEAN"},
		"chapter":         {Type: "STRING"},
	},
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}
