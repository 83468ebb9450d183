package conversation

import (
	"regexp"
	"strings"
)

// IntentType is what a single message asks for.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentBook
	IntentReschedule
	IntentCancel
	IntentSelectSlot
	IntentConfirm
)

func (t IntentType) String() string {
	switch t {
	case IntentBook:
		return "book"
	case IntentReschedule:
		return "reschedule"
	case IntentCancel:
		return "cancel"
	case IntentSelectSlot:
		return "select_slot"
	case IntentConfirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// ParsedIntent is the classifier's verdict. SlotIndex is set only for
// IntentSelectSlot and is zero-based.
type ParsedIntent struct {
	Type      IntentType
	SlotIndex *int
}

type slotPattern struct {
	re    *regexp.Regexp
	index int
}

// Explicit ordinals are checked before the bare number words so that
// "the second one" selects the second slot.
var slotPatterns = []slotPattern{
	{regexp.MustCompile(`\b(first|1st|option\s*1|slot\s*1)\b`), 0},
	{regexp.MustCompile(`\b(second|2nd|option\s*2|slot\s*2)\b`), 1},
	{regexp.MustCompile(`\bone\b|^#?1$`), 0},
	{regexp.MustCompile(`\btwo\b|^#?2$`), 1},
}

var (
	confirmKeywords    = []string{"yes", "confirm", "okay", "ok", "sure", "correct", "right", "yep", "yeah"}
	cancelKeywords     = []string{"cancel", "delete", "remove", "drop", "clear"}
	rescheduleKeywords = []string{"reschedule", "move", "change", "shift", "postpone", "modify", "update"}
	bookKeywords       = []string{"book", "schedule", "make", "set up", "arrange", "create", "new appointment"}
)

type intentRule func(text string, state State) (ParsedIntent, bool)

// intentRules are evaluated in order; the first match wins. Keywords match
// anywhere in the text, so "confirmed" and "alright" both confirm.
var intentRules = []intentRule{
	matchSlotSelection,
	matchConfirmation,
	keywordRule(IntentCancel, cancelKeywords),
	keywordRule(IntentReschedule, rescheduleKeywords),
	keywordRule(IntentBook, bookKeywords),
}

// Classify maps a message and the current state to an intent. It is pure.
func Classify(message string, state State) ParsedIntent {
	text := strings.ToLower(strings.TrimSpace(message))
	for _, rule := range intentRules {
		if intent, ok := rule(text, state); ok {
			return intent
		}
	}
	return ParsedIntent{Type: IntentUnknown}
}

func matchSlotSelection(text string, state State) (ParsedIntent, bool) {
	if !state.HasPendingSlots() {
		return ParsedIntent{}, false
	}
	for _, p := range slotPatterns {
		if p.re.MatchString(text) {
			idx := p.index
			return ParsedIntent{Type: IntentSelectSlot, SlotIndex: &idx}, true
		}
	}
	return ParsedIntent{}, false
}

func matchConfirmation(text string, state State) (ParsedIntent, bool) {
	if !state.AwaitingConfirmation {
		return ParsedIntent{}, false
	}
	return keywordRule(IntentConfirm, confirmKeywords)(text, state)
}

func keywordRule(t IntentType, keywords []string) intentRule {
	return func(text string, _ State) (ParsedIntent, bool) {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return ParsedIntent{Type: t}, true
			}
		}
		return ParsedIntent{}, false
	}
}
