// Package modelstream routes streamed model-response chunks: thought parts
// feed the thought parser, answer parts accumulate verbatim.
package modelstream

// Part is one fragment of a structured response chunk. Thought marks text the
// model emitted as internal reasoning narration rather than answer text.
type Part struct {
	Thought bool
	Text    string
}

// Chunk is one immutable unit received from a model stream. Structured
// backends populate Parts; OpenAI-compatible backends have no thought channel
// and expose a single flat Text fragment instead.
type Chunk struct {
	Parts []Part
	Text  string
}
