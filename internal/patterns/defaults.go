package patterns

// defaultCategories returns the embedded catalog used when the
// external resource is missing or malformed. Phrases are lowercase.
func defaultCategories() map[string][]string {
	return map[string][]string{
		CategoryQuestion: {
			"what", "when", "where", "who", "why", "how",
			"can", "could", "would", "should", "will",
			"is", "are", "do", "does", "did",
		},
		CategoryFrustration: {
			"frustrated", "frustrating", "annoyed", "annoying", "fed up",
			"sick of", "tired of", "ridiculous", "unacceptable",
			"waste of time", "again and again", "how many times",
		},
		CategoryUrgency: {
			"urgent", "urgently", "asap", "immediately", "right away",
			"critical", "deadline", "time sensitive", "end of day",
			"as soon as possible", "emergency", "overdue",
		},
		CategoryRepetition: {
			"as i said", "as i mentioned", "like i said", "once again",
			"i already told", "repeating myself", "for the third time",
			"again,", "as previously stated",
		},
		CategoryEscalation: {
			"escalate", "escalating", "manager", "supervisor", "legal",
			"lawyer", "cancel the contract", "take my business elsewhere",
			"formal complaint", "last warning",
		},
		CategoryDismissive: {
			"whatever", "fine.", "doesn't matter", "forget it",
			"never mind", "nevermind", "if you say so", "sure, whatever",
			"not my problem",
		},
		CategoryNegativeTone: {
			"bad", "terrible", "awful", "horrible", "disappointing",
			"disappointed", "unhappy", "poor", "wrong", "failure",
			"failed", "useless", "worst",
		},
		CategoryActionRequest: {
			"please send", "can you send", "please provide", "please share",
			"need you to", "could you", "can you", "please review",
			"please confirm", "follow up", "get back to me", "let me know",
		},
		CategoryCommitment: {
			"i will", "i'll", "we will", "we'll", "i can do",
			"i promise", "by tomorrow", "by friday", "by monday",
			"by end of", "i commit", "consider it done", "on it",
		},
		CategoryDecision: {
			"we decided", "i decided", "decision", "let's go with",
			"we'll go with", "we're going with", "agreed to", "final answer",
			"settled on", "signed off", "approved",
		},
		CategoryDisagreement: {
			"disagree", "i don't think", "that's not right",
			"that won't work", "i'm not sure that", "actually, no",
			"that's incorrect", "i don't agree", "on the contrary",
			"not what we discussed",
		},
		CategoryConfusion: {
			"confused", "confusing", "don't understand", "not clear",
			"unclear", "what do you mean", "i'm lost", "doesn't make sense",
			"can you clarify", "can you explain", "not following",
		},
		CategoryPositivity: {
			"great", "thanks", "thank you", "awesome", "perfect",
			"excellent", "sounds good", "appreciate", "well done",
			"happy", "glad", "wonderful", "love it",
		},
		CategoryAssumption: {
			"i assumed", "i thought you", "i was under the impression",
			"i expected", "you said", "we agreed", "wasn't that",
			"i figured", "supposed to",
		},
	}
}
