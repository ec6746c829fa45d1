package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleTool      = "tool"

	TitleMaxLength = 80

	// a title is a few words; the cap keeps a runaway answer cheap
	TitleMaxTokens   = 32
	TitleTemperature = 0.2

	TitleSystemPrompt = `- you will generate a short title based on the first message a user begins a conversation with
- ensure it is not more than 80 characters long
- the title should be a summary of the user's message
- do not use quotes or colons`
)
