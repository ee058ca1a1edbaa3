package taxonomy

// SystemDefault returns the generic base taxonomy every organization
// starts from. Industry templates and organization overrides layer on
// top of it.
func SystemDefault() *Data {
	return &Data{
		Categories: []Category{
			{
				Key:         "QUESTION_STATUS",
				DisplayName: "Question Status",
				Values: []Value{
					{Key: "unanswered", DisplayName: "Unanswered"},
					{Key: "repeated_unanswered", DisplayName: "Repeatedly Unanswered"},
				},
			},
			{
				Key:         "TENSION",
				DisplayName: "Tension",
				Values: []Value{
					{Key: "frustration", DisplayName: "Frustration"},
					{Key: "urgency", DisplayName: "Urgency"},
					{Key: "repetition", DisplayName: "Repetition"},
					{Key: "escalation", DisplayName: "Escalation"},
					{Key: "dismissiveness", DisplayName: "Dismissiveness"},
					{Key: "negative_tone", DisplayName: "Negative Tone"},
				},
			},
			{
				Key:         "MISALIGNMENT",
				DisplayName: "Misalignment",
				Values: []Value{
					{Key: "disagreement", DisplayName: "Disagreement"},
					{Key: "confusion", DisplayName: "Confusion"},
					{Key: "assumption", DisplayName: "Assumption"},
				},
			},
			{
				Key:         "DECISION",
				DisplayName: "Decision",
				Values:      []Value{{Key: "made", DisplayName: "Decision Made"}},
			},
			{
				Key:         "ACTION_ITEM",
				DisplayName: "Action Item",
				Values: []Value{
					{Key: "open", DisplayName: "Open"},
					{Key: "high_priority", DisplayName: "High Priority"},
				},
			},
			{
				Key:         "HEALTH",
				DisplayName: "Conversation Health",
				Values: []Value{
					{Key: "low_responsiveness", DisplayName: "Low Responsiveness"},
					{Key: "low_clarity", DisplayName: "Low Clarity"},
					{Key: "low_alignment", DisplayName: "Low Alignment"},
				},
			},
		},
		Topics: []Topic{
			{Key: "billing", Keywords: []string{"invoice", "payment", "charge", "billing", "refund", "price"}},
			{Key: "scheduling", Keywords: []string{"meeting", "schedule", "calendar", "reschedule", "availability"}},
			{Key: "delivery", Keywords: []string{"deadline", "delivery", "timeline", "milestone", "launch", "ship"}},
			{Key: "support", Keywords: []string{"bug", "issue", "error", "broken", "not working", "help"}},
			{Key: "contract", Keywords: []string{"contract", "agreement", "terms", "renewal", "sow"}},
		},
		Roles: []Role{
			{Key: "customer", Keywords: []string{"customer", "client"}, EmailDomainPatterns: nil},
			{Key: "support", Keywords: []string{"support", "helpdesk"}, EmailDomainPatterns: []string{"*@support.*"}},
			{Key: "sales", Keywords: []string{"sales", "account manager"}, EmailDomainPatterns: []string{"*@sales.*"}},
			{Key: "engineering", Keywords: []string{"engineer", "developer", "dev"}, EmailDomainPatterns: nil},
			{Key: "management", Keywords: []string{"manager", "director", "vp", "head of"}, EmailDomainPatterns: nil},
		},
		SeverityRules: nil,
	}
}

// IndustryTemplates returns the built-in templates keyed by industry.
// Unrecognized industries fall back to the system default alone.
func IndustryTemplates() map[string]*Data {
	return map[string]*Data{
		"saas": {
			Topics: []Topic{
				{Key: "onboarding", Keywords: []string{"onboarding", "setup", "activation", "trial"}},
				{Key: "churn", Keywords: []string{"cancel", "downgrade", "churn", "switching to"}},
			},
			SeverityRules: []SeverityRule{
				{Category: "TENSION", Value: "escalation", Condition: "topic == 'churn'", Severity: "high"},
			},
		},
		"agency": {
			Topics: []Topic{
				{Key: "scope", Keywords: []string{"scope", "out of scope", "change request", "revision"}},
				{Key: "creative", Keywords: []string{"design", "draft", "feedback", "review round"}},
			},
			SeverityRules: []SeverityRule{
				{Category: "QUESTION_STATUS", Value: "unanswered", Condition: "topic == 'scope'", Severity: "high"},
			},
		},
		"recruiting": {
			Topics: []Topic{
				{Key: "interview", Keywords: []string{"interview", "screen", "panel", "debrief"}},
				{Key: "offer", Keywords: []string{"offer", "compensation", "salary", "start date"}},
			},
			SeverityRules: []SeverityRule{
				{Category: "QUESTION_STATUS", Value: "unanswered", Condition: "topic == 'offer'", Severity: "high"},
			},
		},
	}
}
