package cacher

// CharsPerToken is the fixed characters-per-token approximation used for
// context-window budgeting. It is a heuristic, not a tokenizer.
const CharsPerToken = 4

// TrimToBudget walks msgs (oldest-first) from the most recent backward,
// accumulating messages while the running character count stays within
// maxTokens * CharsPerToken. The most recent message is always included,
// even when it alone exceeds the budget. The result is chronological.
func TrimToBudget(msgs []Message, maxTokens int) []ContextMessage {
	if len(msgs) == 0 {
		return []ContextMessage{}
	}

	budget := maxTokens * CharsPerToken

	start := len(msgs)
	used := 0

	for i := len(msgs) - 1; i >= 0; i-- {
		cost := len(msgs[i].Content)
		if used+cost > budget && start < len(msgs) {
			break
		}
		used += cost
		start = i
	}

	result := make([]ContextMessage, 0, len(msgs)-start)
	for _, msg := range msgs[start:] {
		result = append(result, ContextMessage{Role: msg.Role, Content: msg.Content})
	}

	return result
}
