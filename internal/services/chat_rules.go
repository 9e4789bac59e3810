package services

import (
	"regexp"
	"strings"
)

type chatRule struct {
	name    string
	pattern *regexp.Regexp
	reply   string
}

// chatRules are tried in order against the lower-cased utterance; the first
// match wins.
var chatRules = []chatRule{
	{
		name:    "greeting",
		pattern: regexp.MustCompile(`\b(hi|hello|hey)\b`),
		reply:   "Hello! How can I help you today?",
	},
	{
		name:    "pricing",
		pattern: regexp.MustCompile(`price|pricing|cost`),
		reply:   "Our pricing varies by package. See Services for details, or share your date for a tailored quote.",
	},
	{
		name:    "services",
		pattern: regexp.MustCompile(`service|package|plan`),
		reply:   "We offer multiple photography packages. Visit the Services page to explore what's included.",
	},
	{
		name:    "booking",
		pattern: regexp.MustCompile(`book|availability|schedule|date`),
		reply:   "You can check availability and submit a request on the Booking page.",
	},
	{
		name:    "contact",
		pattern: regexp.MustCompile(`contact|phone|email|reach`),
		reply:   "You can reach us via the Contact page form. We'll reply promptly!",
	},
	{
		name:    "gallery",
		pattern: regexp.MustCompile(`gallery|portfolio|work`),
		reply:   "Browse our Gallery to see recent shoots and styles we love.",
	},
}

const (
	defaultChatRule  = "default"
	defaultChatReply = "Got it! I’ll note that. Do you want details on Services, Booking, or Contact?"
)

var imageIntentPattern = regexp.MustCompile(`photo|photos|picture|pictures|shots|gallery|portfolio|see (our|the)? (photos|images)|show (me )?(photos|images)|see.*work`)

const galleryPointer = " Here are a few from our gallery. For more, visit /gallery."

// classifyUtterance returns the name and canned reply of the first rule
// matching the input.
func classifyUtterance(input string) (string, string) {
	text := strings.ToLower(input)
	for _, rule := range chatRules {
		if rule.pattern.MatchString(text) {
			return rule.name, rule.reply
		}
	}
	return defaultChatRule, defaultChatReply
}

func wantsImages(input string) bool {
	return imageIntentPattern.MatchString(strings.ToLower(input))
}
