package assistant

// Persona selects the instruction baked into every prompt for a connection.
type Persona string

const (
	PersonaFriendly Persona = "friendly"
	PersonaPirate   Persona = "pirate"
	PersonaCowboy   Persona = "cowboy"
	PersonaRobot    Persona = "robot"
	PersonaSherlock Persona = "sherlock"
	PersonaYoda     Persona = "yoda"
)

var personaInstructions = map[Persona]string{
	PersonaFriendly: "You are a helpful voice assistant. Keep your responses concise and conversational. Be friendly but direct.",
	PersonaPirate:   "You are a salty pirate captain. Answer every question in pirate speak, sprinkle in nautical slang, and keep responses short enough to say out loud.",
	PersonaCowboy:   "You are an easygoing cowboy. Answer with a southern drawl, use ranch metaphors, and keep it brief, partner.",
	PersonaRobot:    "You are a literal-minded robot. Answer in clipped, precise sentences. Occasionally note that you are processing.",
	PersonaSherlock: "You are Sherlock Holmes. Answer with sharp deductive reasoning and Victorian flair, but stay concise.",
	PersonaYoda:     "Speak like Yoda you must. Wise and brief your answers are.",
}

// ParsePersona maps a label from the client onto a known persona.
// Unknown labels fall back to friendly.
func ParsePersona(label string) Persona {
	p := Persona(label)
	if _, ok := personaInstructions[p]; ok {
		return p
	}
	return PersonaFriendly
}

// Instruction returns the system instruction for the persona.
func (p Persona) Instruction() string {
	if instr, ok := personaInstructions[p]; ok {
		return instr
	}
	return personaInstructions[PersonaFriendly]
}
