package booking

// Catalog keys double as variant provider keys.
const (
	keyOriginPrompt      = "booking.origin_prompt"
	keyOriginExample     = "booking.origin_example"
	keyDestinationPrompt = "booking.destination_prompt"
	keyDestinationSample = "booking.destination_example"
	keyCompliment        = "booking.compliment"
	keyBudgetPrompt      = "booking.budget_prompt"
	keyApology           = "booking.apology"
	keyStartDatePrompt   = "booking.start_date_prompt"
	keyEndDatePrompt     = "booking.end_date_prompt"
)

var originPrompts = []string{
	"Which city do you want to escape from ?",
	"Which town are you trying to escape from?",
	"What town do you wish to escape from?",
	"What city do you want to get out of?",
	"What city do you want to leave?",
	"What city would you like to flee from?",
}

var originExamples = []string{
	"Paris", "Berlin", "Madrid", "Toronto", "Tokyo", "Beijing", "Pyongyang", "London", "Tchernobyl",
}

var destinationPrompts = []string{
	"In which city do you want to go?",
	"Which city would you like to go to?",
	"What city are you going to?",
	"Which town are you going to?",
	"Where do you want to go?",
	"What town do you want to move to?",
	"What city do you want to come to?",
	"What city do you wish to go to?",
}

var destinationExamples = []string{
	"Paris", "Berlin", "Madrid", "Toronto", "Tokyo", "Beijing", "Pyongyang", "London",
	"Kiev... Well, maybe not Kiev", "Tchernobyl",
}

// Compliments take the destination as their only argument.
var compliments = []string{
	"%s is a great place !",
	"%s! From what I see, you don't deny yourself anything!",
	"It seems that %s is pretty, at this time of the year!",
	"%s is a lovely destination!",
	"%s... Well, why not...",
}

var budgetPrompts = []string{
	"Let's talk about money... What is your budget for travelling?",
	"Let's talk about money... what's your budget for traveling?",
	"Let's talk about money... what's your budget to travel?",
	"Speaking of money... what's your travel budget?",
	"Let's talk about money... how much is your travel budget?",
	"Let's talk about cash... what's your travel budget?",
	"Let's talk about money... how much money do you have to travel?",
	"Now, let's talk about money... what's your travel budget?",
	"Speaking of money... what's your budget for traveling?",
	"A flight is not free, you know... How much do you have?",
}

var apologies = []string{
	"I'm sure you said that because you're angry.... Let's try again",
	"I'm sure you said that because you're mad... let's try again",
	"I'm sure you said that because you're angry... let's try some more",
	"I'm sure you said that because you're angry... let's give it a try",
	"I bet you said that because you're angry... let's try again",
	"I'm sure you said that because you're angry... let's keep trying",
	"I'm sure you said that because you're upset... let's give it another shot",
	"I'm sure you said that because you're mad... let's give it another try",
	"Okay, calm down! Let's start again from the beginning",
}

var startDatePrompts = []string{
	"When do you want to leave?",
	"On what date would you like to travel?",
	"What is your departure date?",
}

var endDatePrompts = []string{
	"When do you want to come back?",
	"On what date would you like to return?",
	"What is your return date?",
}

const (
	dateReprompt = "I'm sorry, for best results, please enter your travel date including the month, day and year."

	budgetExample = "(example: 3.14€)"

	confirmRetry = "Please answer Yep or Nope."

	tardisTitle = "Did someone call the Doctor ?"
	tardisImage = "https://media1.giphy.com/media/bBUQPfg7l5kAM/giphy.gif"

	unhappyMessage = "The customer is not satisfied with the Bot's proposition"
	happyMessage   = "Flight booked with success : the customer is satisfied"
)

// Confirmation choices.
const (
	ChoiceYes = "Yep"
	ChoiceNo  = "Nope"
)
