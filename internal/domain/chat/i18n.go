package chat

import "errors"

// ErrUnsupportedLanguage is returned by SetLanguage for languages without a phrasebook.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Phrase identifies a locally synthesized string.
type Phrase string

const (
	PhraseGreeting                Phrase = "greeting"
	PhraseWelcomeBack             Phrase = "welcome_back"
	PhraseNewChat                 Phrase = "new_chat"
	PhraseThinking                Phrase = "thinking"
	PhraseError                   Phrase = "error"
	PhraseConnected               Phrase = "connected"
	PhraseDisconnected            Phrase = "disconnected"
	PhrasePermanentlyDisconnected Phrase = "permanently_disconnected"
)

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = "en"

var phrasebook = map[string]map[Phrase]string{
	"en": {
		PhraseGreeting:                "Hello! I'm MediAI, your medical assistant. I can help with general health questions, symptom information, and first aid advice. How can I help you today?",
		PhraseWelcomeBack:             "👋 Welcome back! I'm here to help with your medical questions.",
		PhraseNewChat:                 "👋 New chat started with MediAI - Your Medical Assistant",
		PhraseThinking:                "MediAI is thinking",
		PhraseError:                   "I'm having trouble connecting to my medical knowledge base. Please try again or rephrase your question.",
		PhraseConnected:               "Connected to real-time chat",
		PhraseDisconnected:            "Disconnected from real-time chat",
		PhrasePermanentlyDisconnected: "Real-time chat is unavailable. Messages will be sent normally.",
	},
	"fr": {
		PhraseGreeting:                "Bonjour ! Je suis MediAI, votre assistant médical. Je peux vous aider avec des questions générales sur la santé, des informations sur les symptômes et des conseils de premiers soins. Comment puis-je vous aider aujourd'hui ?",
		PhraseWelcomeBack:             "👋 Bon retour ! Je suis là pour vous aider avec vos questions médicales.",
		PhraseNewChat:                 "👋 Nouvelle conversation avec MediAI - Votre Assistant Médical",
		PhraseThinking:                "MediAI réfléchit",
		PhraseError:                   "J'ai des difficultés à me connecter à ma base de connaissances médicales. Veuillez réessayer ou reformuler votre question.",
		PhraseConnected:               "Connecté au chat en temps réel",
		PhraseDisconnected:            "Déconnecté du chat en temps réel",
		PhrasePermanentlyDisconnected: "Le chat en temps réel est indisponible. Les messages seront envoyés normalement.",
	},
}

// SupportedLanguage reports whether lang has a phrasebook.
func SupportedLanguage(lang string) bool {
	_, ok := phrasebook[lang]
	return ok
}

// Text returns the phrase in lang, falling back to English.
func Text(lang string, p Phrase) string {
	if book, ok := phrasebook[lang]; ok {
		if s, ok := book[p]; ok {
			return s
		}
	}
	return phrasebook[DefaultLanguage][p]
}
