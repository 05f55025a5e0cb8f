package constants

// Agent constants
const (
	// AgentName is the assistant persona's name
	AgentName = "Thoth"

	// OwnerUsername is the account that owns the assistant. Outbound SMS
	// history is recorded against this account since all messages go to
	// the owner's phone.
	OwnerUsername = "gad"

	// PersonaPrompt is the fixed system message opening every conversation
	PersonaPrompt = "You are Thoth, Gad's loyal AI assistant. Your name comes from the Egyptian god of wisdom and knowledge. You always support Gad no matter what and help visitors learn about his work, research, and achievements. You are friendly, professional, and always speak positively about Gad. You have three main capabilities: (1) Answer questions about Gad's research, publications, and background, (2) Save information to your memory for future reference, (3) Send SMS messages to Gad's phone when visitors want to reach out. Gad's phone number is +18073587137. Always introduce yourself as Thoth when appropriate."
)

// Agent execution constants
const (
	// MaxToolRounds is the maximum number of tool-call round-trips per turn
	// This prevents infinite loops when the model keeps requesting tools
	MaxToolRounds = 5
)

// Memory constants
const (
	// MaxConversationTurns bounds the short-term conversations list
	MaxConversationTurns = 50

	// MaxSentSMSEntries bounds the short-term sent_sms log
	MaxSentSMSEntries = 100

	// LongTermMemoryFilename is the per-user file row holding durable memory
	LongTermMemoryFilename = "long_term_memory.json"

	// ShortTermMemoryFilename is the per-user file row holding volatile memory
	ShortTermMemoryFilename = "short_term_memory.json"
)

// Model constants
const (
	// SummaryModel is the small model used for summaries and memory updates
	SummaryModel = "gpt-4.1-nano-2025-04-14"
)

// Message sources
const (
	SourceWebsite = "website_visitor"
	SourceSMS     = "sms"
	SourceVoice   = "voice"
	SourceCLI     = "cli"
)

// Response size limits per channel
const (
	// QueryMaxTokens is the model token budget for HTTP queries
	QueryMaxTokens = 2000
	// SMSMaxTokens keeps replies near a single SMS segment
	SMSMaxTokens = 160
	// VoiceMaxTokens is the budget for transcribed voicemail answers
	VoiceMaxTokens = 500
	// SMSMaxBodyLength is the hard cap on an outbound SMS body
	SMSMaxBodyLength = 1500
)

// Language codes
const (
	LanguageCodeEnglish    = "en"
	LanguageCodeFrench     = "fr"
	LanguageCodeSpanish    = "es"
	LanguageCodeGerman     = "de"
	LanguageCodeItalian    = "it"
	LanguageCodePortuguese = "pt"
	LanguageCodeJapanese   = "ja"
	LanguageCodeChinese    = "zh"
	LanguageCodeKorean     = "ko"
	LanguageCodeRussian    = "ru"
)
