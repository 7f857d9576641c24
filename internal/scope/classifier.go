// Package scope gates incoming questions against the textbook's declared
// subject domain before any retrieval or generation cost is paid.
package scope

import (
	"fmt"
	"regexp"
	"strings"
)

// Decision is the outcome of classifying a single question. Computed once per
// question, never persisted or reused across turns.
type Decision struct {
	OutOfScope bool
	Reason     string // tag such as "blacklist_match:<topic>", empty when in scope
	Response   string // canned redirect text, empty when in scope
	Confidence float64
}

// Topics that are definitively outside the textbook domain.
var blacklistPatterns = []string{
	// Medical
	`(?i)\b(medical|health|disease|symptom|diagnosis|treatment|doctor|hospital)\b`,
	`(?i)\b(medicine|medication|drug|prescription|pharmaceutical)\b`,
	// Financial
	`(?i)\b(stock|invest|crypto|bitcoin|trading|forex|money)\b`,
	`(?i)\b(loan|mortgage|credit|debt|insurance|tax)\b`,
	// Legal
	`(?i)\b(lawyer|attorney|legal|lawsuit|court|sue|liability)\b`,
	`(?i)\b(contract|divorce|custody|immigration)\b`,
	// Personal advice
	`(?i)\b(relationship|dating|love|marriage|divorce)\b`,
	// Other
	`(?i)\b(recipe|cook|food|restaurant)\b`,
	`(?i)\b(celebrity|gossip|entertainment|movie|music)\b`,
	`(?i)\b(politics|election|vote|democrat|republican)\b`,
	`(?i)\b(religion|god|prayer|spiritual)\b`,
}

// Positive signals that a question is about the textbook's subject matter.
var inScopeKeywords = []string{
	"robot", "robotics", "ros", "ros2", "ros 2",
	"gazebo", "simulation", "simulator", "isaac", "nvidia",
	"sensor", "actuator", "motor", "joint", "arm", "gripper",
	"navigation", "slam", "localization", "mapping", "path planning",
	"perception", "vision", "camera", "lidar", "depth",
	"control", "controller", "pid", "mpc",
	"learning", "reinforcement", "neural", "network", "model",
	"vla", "vision-language", "embodied", "physical ai",
	"humanoid", "manipulator", "mobile robot", "drone",
	"urdf", "sdf", "xacro", "mesh", "collision",
	"topic", "service", "action", "node", "publisher", "subscriber",
	"transform", "tf", "frame", "coordinate",
	"docker", "container", "deployment", "cuda", "gpu",
}

// Exact substrings that mark a question as off-topic regardless of keywords.
var offTopicPhrases = []string{
	"how do i make money",
	"what should i invest in",
	"is it legal to",
	"should i see a doctor",
	"relationship advice",
	"best restaurant",
	"movie recommendation",
}

// Tokens that mark a short keyword-free question as a meta-question about the
// assistant itself, which gets the benefit of the doubt.
var genericHelpTokens = []string{"help", "what", "how", "explain", "tell"}

const redirectTemplate = `I can only answer questions about the Physical AI & Humanoid Robotics textbook content.

Your question about %q is outside the scope of this textbook.

**Topics I can help with:**
- Physical AI and embodied intelligence
- ROS 2 architecture and programming
- Robotics simulation (Gazebo, Isaac Sim)
- Vision-Language-Action models
- Humanoid robot development

Would you like to ask about any of these topics?`

// Classifier decides whether a question is within the textbook domain.
// Pure function of the input text and the fixed rule tables: no external
// calls, no state mutation, identical input always yields the same decision.
type Classifier struct {
	blacklist []*regexp.Regexp
}

// New compiles the rule tables into a Classifier.
func New() *Classifier {
	compiled := make([]*regexp.Regexp, len(blacklistPatterns))
	for i, p := range blacklistPatterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return &Classifier{blacklist: compiled}
}

// Check classifies a question. Tiers are evaluated in order and the first
// matching tier wins; classification always terminates with a decision.
func (c *Classifier) Check(question string) Decision {
	lower := strings.ToLower(question)

	// Tier 1: blacklist patterns.
	for _, pattern := range c.blacklist {
		if topic := pattern.FindString(question); topic != "" {
			return Decision{
				OutOfScope: true,
				Reason:     "blacklist_match:" + topic,
				Response:   fmt.Sprintf(redirectTemplate, topic),
				Confidence: 0.95,
			}
		}
	}

	// Tier 2: in-scope keyword count.
	keywordCount := 0
	for _, kw := range inScopeKeywords {
		if strings.Contains(lower, kw) {
			keywordCount++
		}
	}

	// A short keyword-free question still passes when it looks like a
	// meta-question about the assistant itself.
	if keywordCount == 0 && len(strings.Fields(question)) < 5 {
		for _, tok := range genericHelpTokens {
			if strings.Contains(lower, tok) {
				return Decision{Confidence: 0.6}
			}
		}
	}

	// Tier 3: off-topic phrasing.
	for _, phrase := range offTopicPhrases {
		if strings.Contains(lower, phrase) {
			return Decision{
				OutOfScope: true,
				Reason:     "off_topic_phrase:" + phrase,
				Response:   fmt.Sprintf(redirectTemplate, phrase),
				Confidence: 0.9,
			}
		}
	}

	// Default: in scope, confidence scaled by keyword presence.
	if keywordCount > 0 {
		return Decision{Confidence: 0.8}
	}
	return Decision{Confidence: 0.5}
}
