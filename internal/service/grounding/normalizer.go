// Package grounding turns a raw chat provider payload into display text and
// web citations. It never fails: unknown or broken payloads degrade to the
// fallback apology and an empty source list.
package grounding

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pickmecinime/cinime/backend/internal/model/chat"
	"github.com/pickmecinime/cinime/backend/internal/pkg/logger"
)

// FallbackText replaces the answer when no text can be extracted.
const FallbackText = "Sorry, I couldn't come up with an answer this time. Could you try asking in a different way?"

// Variant tags the payload shape that was recognised.
type Variant string

const (
	VariantUnknown    Variant = "unknown"
	VariantCandidates Variant = "candidates"
	VariantMessage    Variant = "message"
)

// Result is the normalised view of one provider response.
type Result struct {
	Text        string
	Sources     []chat.Source
	Variant     Variant
	Diagnostics []string
}

// Normalizer logs diagnostics for degraded payloads.
type Normalizer struct {
	log *zap.Logger
}

// NewNormalizer returns a Normalizer; a nil logger discards diagnostics.
func NewNormalizer(log *zap.Logger) *Normalizer {
	return &Normalizer{log: logger.Module(log, "grounding")}
}

// Normalize extracts text and sources from raw.
func (n *Normalizer) Normalize(raw []byte) Result {
	res := Decode(raw)
	if len(res.Diagnostics) > 0 {
		n.log.Warn("degraded provider response",
			zap.String("variant", string(res.Variant)),
			zap.Strings("diagnostics", res.Diagnostics),
			zap.Int("sources", len(res.Sources)),
		)
	}
	return res
}

// extractor is one variant's pure extraction function.
type extractor struct {
	variant Variant
	matches func(fields map[string]json.RawMessage) bool
	extract func(raw []byte) Result
}

// extractors are tried in order; the first match wins.
var extractors = []extractor{
	{
		variant: VariantCandidates,
		matches: func(fields map[string]json.RawMessage) bool { return has(fields, "candidates") },
		extract: extractCandidates,
	},
	{
		variant: VariantMessage,
		matches: func(fields map[string]json.RawMessage) bool { return has(fields, "content") },
		extract: extractMessage,
	},
}

// Decode is the pure form of Normalize.
func Decode(raw []byte) Result {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fallback(VariantUnknown, fmt.Sprintf("payload is not a JSON object: %v", err))
	}

	for _, ex := range extractors {
		if ex.matches(fields) {
			res := ex.extract(raw)
			res.Variant = ex.variant
			if res.Text == "" {
				res.Text = FallbackText
				res.Diagnostics = append(res.Diagnostics, "no answer text in response")
			}
			if res.Sources == nil {
				res.Sources = []chat.Source{}
			}
			return res
		}
	}

	return fallback(VariantUnknown, "unrecognised response shape")
}

func fallback(variant Variant, diagnostic string) Result {
	return Result{
		Text:        FallbackText,
		Sources:     []chat.Source{},
		Variant:     variant,
		Diagnostics: []string{diagnostic},
	}
}

func has(fields map[string]json.RawMessage, key string) bool {
	v, ok := fields[key]
	return ok && string(v) != "null"
}

type candidatesPayload struct {
	Candidates []json.RawMessage `json:"candidates"`
}

type contentBlock struct {
	Parts []json.RawMessage `json:"parts"`
}

type part struct {
	Text    string `json:"text"`
	Thought bool   `json:"thought"`
}

type webRef struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type groundingEntry struct {
	Web              *webRef `json:"web"`
	RetrievedContext *webRef `json:"retrievedContext"`
}

func extractCandidates(raw []byte) Result {
	var res Result

	var payload candidatesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("candidates list unreadable: %v", err))
		return res
	}
	if len(payload.Candidates) == 0 {
		res.Diagnostics = append(res.Diagnostics, "response has no candidates")
		return res
	}

	var first map[string]json.RawMessage
	if err := json.Unmarshal(payload.Candidates[0], &first); err != nil {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("first candidate unreadable: %v", err))
		return res
	}

	res.Text, res.Diagnostics = candidateText(first, res.Diagnostics)

	if has(first, "groundingMetadata") {
		var meta map[string]json.RawMessage
		if err := json.Unmarshal(first["groundingMetadata"], &meta); err != nil {
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("grounding metadata unreadable: %v", err))
		} else {
			res.Sources = appendEntries(res.Sources, entryList(meta, "groundingChunks", &res.Diagnostics))
			res.Sources = appendEntries(res.Sources, entryList(meta, "groundingAttributions", &res.Diagnostics))

			var queries []string
			for _, key := range []string{"webSearchQueries", "retrievalQueries"} {
				var q []string
				if has(meta, key) && json.Unmarshal(meta[key], &q) == nil {
					queries = append(queries, q...)
				}
			}
			if len(queries) > 0 {
				res.Diagnostics = append(res.Diagnostics, "search queries without links: "+strings.Join(queries, "; "))
			}
		}
	}
	res.Sources = appendEntries(res.Sources, entryList(first, "groundingAttributions", &res.Diagnostics))

	return res
}

// entryList reads fields[key] as a list, noting a diagnostic when it is
// present but not a list.
func entryList(fields map[string]json.RawMessage, key string, diagnostics *[]string) []json.RawMessage {
	if !has(fields, key) {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(fields[key], &entries); err != nil {
		*diagnostics = append(*diagnostics, key+" is not a list")
		return nil
	}
	return entries
}

func candidateText(fields map[string]json.RawMessage, diagnostics []string) (string, []string) {
	var content contentBlock
	if has(fields, "content") {
		if err := json.Unmarshal(fields["content"], &content); err != nil {
			diagnostics = append(diagnostics, fmt.Sprintf("candidate content unreadable: %v", err))
		}
	}
	if len(content.Parts) == 0 {
		var reason string
		if has(fields, "finishReason") {
			_ = json.Unmarshal(fields["finishReason"], &reason)
		}
		if reason == "" {
			reason = "unspecified"
		}
		return "", append(diagnostics, "candidate has no content, finish reason "+reason)
	}

	var b strings.Builder
	for i, rawPart := range content.Parts {
		var p part
		if err := json.Unmarshal(rawPart, &p); err != nil {
			diagnostics = append(diagnostics, fmt.Sprintf("part %d unreadable: %v", i, err))
			continue
		}
		if p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String()), diagnostics
}

// appendEntries keeps entries that carry a web reference with a URI. Broken
// entries are skipped one by one.
func appendEntries(dst []chat.Source, entries []json.RawMessage) []chat.Source {
	for _, rawEntry := range entries {
		var entry groundingEntry
		if err := json.Unmarshal(rawEntry, &entry); err != nil {
			continue
		}
		ref := entry.Web
		if ref == nil {
			ref = entry.RetrievedContext
		}
		if ref == nil {
			continue
		}
		if src, ok := chat.NewSource(ref.Title, ref.URI); ok {
			dst = append(dst, src)
		}
	}
	return dst
}

type citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	URI   string `json:"uri"`
}

func extractMessage(raw []byte) Result {
	var res Result

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("message unreadable: %v", err))
		return res
	}

	var text string
	if err := json.Unmarshal(fields["content"], &text); err != nil {
		res.Diagnostics = append(res.Diagnostics, "message content is not a string")
	}
	res.Text = strings.TrimSpace(text)

	for _, rawCitation := range entryList(fields, "citations", &res.Diagnostics) {
		var c citation
		if err := json.Unmarshal(rawCitation, &c); err != nil {
			continue
		}
		uri := c.URI
		if uri == "" {
			uri = c.URL
		}
		if src, ok := chat.NewSource(c.Title, uri); ok {
			res.Sources = append(res.Sources, src)
		}
	}

	return res
}
