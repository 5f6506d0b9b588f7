package bot

const (
	keyJoke          = "main.joke"
	keyGreeting      = "main.greeting"
	keyFollowUp      = "main.follow_up"
	keyMisunderstood = "main.misunderstood"
)

const notConfiguredNotice = "NOTE: intent recognition is not configured. To enable all capabilities, set " +
	"'RECOGNIZER_PROVIDER' to pattern, gemini or bedrock and provide 'GEMINI_API_KEY' or 'BEDROCK_MODEL_ID'."

const tryHint = "(try: \"I want to book a flight from Paris to Madrid\")"

const (
	helpText   = "Show Help..."
	cancelText = "Cancelling..."
)

var (
	helpWords   = []string{"help", "?"}
	cancelWords = []string{"cancel", "quit"}
)

type jokeLine struct {
	text  string
	delay int // ms
}

var joke = []jokeLine{
	{"Please wait a minute, I need a coffee...", 3000},
	{"Oh sorry, I forgot I'm a bot... I don't drink coffee", 2000},
	{"I'll just take a cookie", 1500},
	{"ʕᵔᴥᵔʔ", 500},
}

var greetings = []string{
	"What can I help you with today?",
	"Is there anything I can do for you today?",
	"How may I help you today?",
	"What can I do for you?",
	"What do you need today?",
	"Can I get you something today?",
	"How can I help you now?",
	"How can I assist you today?",
	"How can I be of service to you today?",
	"Ask me anything... Unless it's about something other than booking a flight",
}

var followUps = []string{
	"What else can I do for you?",
	"Is there anything else I can do for you?",
	"Can I take a break, or you need something else?",
	"Oh, you're still here... You want something else?",
}

var misunderstood = []string{
	"Sorry, I didn't get that. Please try asking in a different way",
	"Sorry, I missed it. Try to ask it differently.",
	"Excuse me, I didn't understand. Try to say it another way.",
	"Pardon me, I didn't understand. Try to ask it another way.",
	"I'm sorry, I didn't understand. Try to ask it in some other way.",
	"Sorry... wtf did you just say?",
}
