package perspective

// Attributes scoreable by the comment analyzer API. Configuration validation
// rejects rules naming anything outside this catalog before a run starts.
var knownAttributes = map[string]struct{}{
	"TOXICITY":          {},
	"SEVERE_TOXICITY":   {},
	"IDENTITY_ATTACK":   {},
	"INSULT":            {},
	"PROFANITY":         {},
	"THREAT":            {},
	"SEXUALLY_EXPLICIT": {},
	"FLIRTATION":        {},
}

// KnownAttribute reports whether name is a scoreable attribute.
func KnownAttribute(name string) bool {
	_, ok := knownAttributes[name]
	return ok
}
