package analyzer

// Lexicons are matched against whole words or whole phrases of the lowercased
// transcript. Each entry counts at most once per transcript.
var (
	LeadLexicon = []string{
		"interested", "quote", "quotes", "buy", "purchase", "price", "pricing",
		"cost", "estimate", "sign up", "hire",
	}

	AppointmentLexicon = []string{
		"schedule", "scheduled", "scheduling", "book", "booked", "booking",
		"appointment", "appointments", "reschedule", "reservation", "consultation",
	}

	QualificationLexicon = []string{
		"budget", "timeline", "authority", "need", "needs", "decision",
		"decision maker", "deadline", "urgent",
	}

	PositiveLexicon = []string{
		"great", "good", "thanks", "thank you", "perfect", "excellent", "happy",
		"wonderful", "awesome", "appreciate", "helpful", "love",
	}

	NegativeLexicon = []string{
		"bad", "terrible", "awful", "angry", "frustrated", "upset", "disappointed",
		"problem", "issue", "complaint", "hate", "worst", "unhappy", "cancel", "rude",
	}
)

// Resolution cues are plain substring mentions, checked in order.
var (
	transferCues    = []string{"transfer"}
	appointmentCues = []string{"schedule", "appointment"}
	informationCues = []string{"information", "answer"}
	callbackCues    = []string{"callback", "call back"}
)

const (
	LeadPointsPerKeyword = 10
	MaxLeadScore         = 100

	LeadCapturedLeadThreshold        = 2
	LeadCapturedAppointmentThreshold = 1
	AppointmentBookedThreshold       = 2
	SalesQualifiedThreshold          = 2

	GoodQualityAfterSeconds = 30
	FairQualityAfterSeconds = 10

	TransferredEndedReason = "call-transferred"
)
