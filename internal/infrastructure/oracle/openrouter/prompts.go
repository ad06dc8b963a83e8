package openrouter

import (
	_ "embed"
)

//go:embed prompts/login_analysis.txt
var loginAnalysisPrompt string

//go:embed prompts/next_action.txt
var nextActionPrompt string

//go:embed prompts/verify_completion.txt
var verifyCompletionPrompt string
