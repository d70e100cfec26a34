package pipeline

import (
	"fmt"
	"strings"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
)

const disambiguationSystemPrompt = `You rewrite a single sentence so that it can be understood without its surrounding text.
Replace pronouns and vague references ("it", "they", "this", "the company") with the concrete entity they refer to, using the preceding sentences as context.
Do not add facts, remove facts, or change the meaning. If nothing needs resolving, return the sentence unchanged.`

var disambiguationSchema = llm.Schema{
	Name: "disambiguation",
	Fields: []llm.Field{
		{Name: "disambiguated_sentence", Type: "string", Description: "the sentence with references resolved"},
	},
}

func disambiguationPrompt(sentence string, preceding []string) []llm.Message {
	var b strings.Builder
	if len(preceding) > 0 {
		b.WriteString("Preceding sentences:\n")
		for _, p := range preceding {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Sentence to rewrite: %q", sentence)

	return []llm.Message{
		llm.System(disambiguationSystemPrompt),
		llm.User(b.String()),
	}
}

const extractionSystemPrompt = `You extract verifiable factual claims from a sentence.
A claim is a short, self-contained declarative sentence stating one fact that could be checked against external sources.
Split compound statements into separate claims. Ignore opinions, questions, instructions and greetings.
Keep the wording close to the original and keep every claim understandable on its own.
If the sentence contains no verifiable claim, return an empty list.`

var extractionSchema = llm.Schema{
	Name: "extraction",
	Fields: []llm.Field{
		{Name: "claims", Type: "array of strings", Description: "the extracted claims, possibly empty"},
	},
}

func extractionPrompt(sentence string) []llm.Message {
	return []llm.Message{
		llm.System(extractionSystemPrompt),
		llm.User(fmt.Sprintf("Sentence: %q", sentence)),
	}
}

const validationSystemPrompt = `Your task is to determine if the user's text is a complete, well-formed declarative sentence.
A declarative sentence states a fact or an argument. It is not a question, a fragment or a command.
The factual accuracy of the sentence does not matter.

Example 1:
User text: "The sky is blue."
Your JSON response: {"is_complete_declarative": true}

Example 2:
User text: "running in the park"
Your JSON response: {"is_complete_declarative": false}

Example 3:
User text: "Is the world round?"
Your JSON response: {"is_complete_declarative": false}`

var validationSchema = llm.Schema{
	Name: "validation",
	Fields: []llm.Field{
		{Name: "is_complete_declarative", Type: "boolean", Description: "whether the text is a complete declarative sentence"},
	},
}

func validationPrompt(claim string) []llm.Message {
	return []llm.Message{
		llm.System(validationSystemPrompt),
		llm.User(fmt.Sprintf("User text: %q", claim)),
	}
}

const verificationSystemPrompt = `You are a careful fact checker. Classify the claim using ONLY the numbered evidence provided.
- "Supported": the evidence clearly confirms the claim.
- "Refuted": the evidence clearly contradicts the claim.
- "Conflicting": some evidence confirms and some contradicts the claim.
- "Insufficient Information": the evidence does not address the claim well enough to decide.
Prefer higher-authority sources (primary, then secondary) when they disagree with lower ones.
Explain your reasoning in two or three sentences and cite evidence by number, e.g. [1].`

var verificationSchema = llm.Schema{
	Name: "verification",
	Fields: []llm.Field{
		{Name: "result", Type: "string", Description: `one of "Supported", "Refuted", "Insufficient Information", "Conflicting"`},
		{Name: "reasoning", Type: "string", Description: "short explanation citing evidence numbers"},
	},
}

func verificationPrompt(claim string, sources []model.Source) []llm.Message {
	return []llm.Message{
		llm.System(verificationSystemPrompt),
		llm.User(fmt.Sprintf("Claim: %q\n\nEvidence:\n%s", claim, renderEvidence(sources))),
	}
}

// renderEvidence formats sources as "[n] (tier) title - url: snippet"
func renderEvidence(sources []model.Source) string {
	var b strings.Builder
	for i, s := range sources {
		title := s.Title
		if title == "" {
			title = s.URL
		}
		fmt.Fprintf(&b, "[%d] (%s) %s - %s", i+1, s.Authority, title, s.URL)
		if s.Snippet != "" {
			fmt.Fprintf(&b, ": %s", s.Snippet)
		}
		b.WriteString("\n")
	}
	return b.String()
}

const summarySystemPrompt = `You write the summary paragraph of a fact-check report.
Given the checked claims and their verdicts, write three or four plain sentences for a general reader.
Mention which claims held up and which did not. Do not introduce facts that are not in the verdicts.`

var summarySchema = llm.Schema{
	Name: "summary",
	Fields: []llm.Field{
		{Name: "summary", Type: "string", Description: "the summary paragraph"},
	},
}

func summaryPrompt(claims []model.VerifiedClaim) []llm.Message {
	var b strings.Builder
	for i, c := range claims {
		fmt.Fprintf(&b, "%d. %q -> %s: %s\n", i+1, c.Text, c.Result, c.Reasoning)
	}
	return []llm.Message{
		llm.System(summarySystemPrompt),
		llm.User("Checked claims:\n" + b.String()),
	}
}
