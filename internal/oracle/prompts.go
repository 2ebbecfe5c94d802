package oracle

import (
	"fmt"
	"sort"
	"strings"
)

// classifyPrompt asks for a verdict on a single statement against a single
// fragment. The asymmetry rule (no relevant information means unclear, not
// false) is spelled out because models otherwise conflate absence with
// contradiction.
func classifyPrompt(statement, fragment, subject string) string {
	return fmt.Sprintf(`You are a research expert verifying a single statement about %s against one piece of source text.

Rules:
- Answer "true" ONLY if the text explicitly and unambiguously confirms the statement.
- Answer "false" ONLY if the text explicitly contradicts the statement.
- Answer "unclear" if the text contains no relevant information. Absence of evidence is NEVER "false".
- Judge only this statement against only this text. Do not use outside knowledge to decide.

Statement:
%s

Source text:
%s

Output in JSON format with exactly these fields:
{"verdict": "true | false | unclear", "justification": "One or two sentences citing the relevant part of the text, or stating that nothing relevant was found"}`, subject, statement, fragment)
}

// reformulatePrompt rewrites multiple choice options as standalone
// statements so each can be verified in isolation. Negated questions
// (EXCEPT/NOT) get inverted statements so exactly one reformulation is true.
func reformulatePrompt(question string, options map[string]string) string {
	return fmt.Sprintf(`You are a research expert tasked with reformulating multiple choice options to make them more specific and easier to search for.
The statements should be reformulated so that they are logically the same as before when the question is: Which statement is TRUE about the subject?
Each statement on its own must be independent of the other statements.
If the question is a negated question (e.g. containing the words "EXCEPT" or "NOT"), reformulate the statements so that they are the opposite of the original statements.

Question:
%s

Options:
%s
Output in JSON format with one field per option letter:
{"A": "Reformulated option A", "B": "Reformulated option B", "C": "Reformulated option C", "D": "Reformulated option D"}`, question, formatOptions(options))
}

// keywordsPrompt asks for search terms covering the still-live statements.
func keywordsPrompt(subject string, statements map[string]string) string {
	return fmt.Sprintf(`You are a research expert generating search keywords to help find evidence for or against statements about %s.
For each statement extract the key terms and conditions, consider temporal and demographic aspects, and include terms that could disprove the statement.
Order the keywords from most to least useful for retrieval.

Statements:
%s
Output in JSON format:
{"keywords": ["keyword1", "keyword2", "keyword3"]}`, subject, formatOptions(statements))
}

func formatOptions(options map[string]string) string {
	letters := make([]string, 0, len(options))
	for letter := range options {
		letters = append(letters, letter)
	}
	sort.Strings(letters)

	var b strings.Builder
	for _, letter := range letters {
		fmt.Fprintf(&b, "%s: %s\n", letter, options[letter])
	}
	return b.String()
}
