// Package prompt composes the instruction prompts sent to the completion
// backend. Composition is deterministic: the same base question always yields
// the same composed prompt, so prompt_version tracking stays meaningful.
package prompt

import (
	"fmt"
	"strings"
)

// Version identifies the instruction template recorded with each label.
// Bump when JSONSuffix or the system persona changes shape.
const Version = "v2"

// JSONSuffix constrains single-answer responses to the object contract the
// parser understands: result, a confidence level, and evidence.
const JSONSuffix = "save the result in a json format, the keys are result, your confidence level(high/middle/low), and evidence."

// SystemPersona frames the model as a domain expert who has read the paper.
// The knowledge base is appended verbatim.
const SystemPersona = "you are a social scientist with a PhD in communication and media. You have read a paper as below:"

// SummaryPrompt asks for a structured methods-focused summary of an article.
const SummaryPrompt = "Please provide a summary of the research article focusing on the following aspects, using original phrases about time and unit of analysis from the article if possible:\n" +
	"- Research Method: Describe the overall research method employed in the study, also the data collection procedure and duration, time intervals\n" +
	"- Time relevant details: state the data collection procedure and duration, time intervals of data collection between times. Usually research variables are collected each time.\n" +
	"- Sampling Method and Entity Type: Explain the sampling method used and specify the type of entities (e.g., individuals, organizations) involved. Here, entity refers to a unit of analysis, also termed analysis level, granularity or resolution.\n" +
	"- Statistical Model: Outline the statistical model applied for analysis. DO NOT USE conceptual model name here.\n" +
	"- Unit of Analysis: Identify the unit of analysis used in the statistical model.\n" +
	"- Number of entities or Sample Size: the table and results parts usually reveal the number of analysis units. Analysis model details in figures and tables are good references."

// Build composes a research question with the canonical JSON instruction
// suffix. A terminating "." is added only when the question ends in neither
// "." nor "?". Build is idempotent: applying it to its own output returns the
// same string, so accidental double-composition cannot corrupt a prompt.
func Build(question string) string {
	q := strings.TrimSpace(question)
	if strings.HasSuffix(q, JSONSuffix) {
		return q
	}
	if !strings.HasSuffix(q, ".") && !strings.HasSuffix(q, "?") {
		q += "."
	}
	return q + JSONSuffix
}

// BuildKeywordSearch composes the multi-document search prompt. The response
// contract is an array of objects with keys result and reference.
func BuildKeywordSearch(keyword string) string {
	return fmt.Sprintf("What are the %s in the article? Give me original reference as well. "+
		"Save the result in a json array, the json array contains json objects, the keys are result and reference.",
		strings.TrimSpace(keyword))
}
