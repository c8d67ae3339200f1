package pipeline

import (
	"fmt"

	"github.com/jchaffin/call-analytics-pinecone/internal/genai"
)

const classificationSystem = `You are a call-analysis engine for customer-service transcripts. Your output must be ONLY a single valid JSON object conforming to the provided schema. Do not include any other text, prose, or markdown.

Decision rules:
- callType is "Automated" when the agent handled the call end-to-end without directing the customer elsewhere.
- callType is "Escalated" when the agent explicitly directed the customer to an external channel (human agent, callback, store, another department).
- Providing the requested information counts as "Successful" even if the conversation is incomplete.
- An Automated call is "Successful" or "Unsuccessful", never "Partially Successful".
- An Escalated call is "Partially Successful" or "Unsuccessful", never "Successful".`

const classificationSystemStrict = classificationSystem + `

Your previous output did not conform to the schema. Output the JSON object only, with every required field present and correctly typed.`

const extractionSystem = `You are a call-analysis engine for customer-service transcripts. Your output must be ONLY a single valid JSON object conforming to the provided schema. Do not include any other text, prose, or markdown.

Rules:
- summary is 2-3 sentences describing what happened on the call.
- keyPoints is 3-6 short items covering the important facts.
- actionItems lists concrete follow-ups; it may be empty.
- productsMentioned lists every product the customer or agent referenced, with brand and category when stated.`

const extractionSystemStrict = extractionSystem + `

Your previous output did not conform to the schema. Output the JSON object only, with every required field present and correctly typed.`

func classificationPrompt(transcriptText string) string {
	return fmt.Sprintf("Classify the following customer-service call transcript.\n\nTranscript:\n%s", transcriptText)
}

func classificationPromptStrict(transcriptText string) string {
	return fmt.Sprintf(`Classify the following customer-service call transcript.

Remember the cross-field rule: an "Automated" call is never "Partially Successful", and an "Escalated" call is never "Successful".

Transcript:
%s`, transcriptText)
}

func extractionPrompt(transcriptText string) string {
	return fmt.Sprintf("Extract the summary, key points, action items, and products mentioned from the following customer-service call transcript.\n\nTranscript:\n%s", transcriptText)
}

func extractionPromptStrict(transcriptText string) string {
	return fmt.Sprintf(`Extract the summary, key points, action items, and products mentioned from the following customer-service call transcript.

Every field in the schema is required. keyPoints must contain 3-6 non-empty strings; actionItems may be an empty array; productsMentioned entries must each have a name.

Transcript:
%s`, transcriptText)
}

func classificationSchema() *genai.Schema {
	return &genai.Schema{
		Type: "object",
		Properties: map[string]genai.Property{
			"callType":        {Type: "string", Description: `"Automated" or "Escalated"`},
			"successCategory": {Type: "string", Description: `"Successful", "Partially Successful" or "Unsuccessful"`},
			"intent":          {Type: "string", Description: "The customer's primary intent, as a short phrase"},
			"intentCategory":  {Type: "string", Description: "Broad category the intent belongs to"},
			"confidence":      {Type: "number", Description: "Classification confidence, 0.0-1.0"},
			"rationale":       {Type: "string", Description: "One or two sentences explaining the classification"},
		},
		Required: []string{"callType", "successCategory", "intent", "intentCategory", "confidence", "rationale"},
	}
}

func extractionSchema() *genai.Schema {
	return &genai.Schema{
		Type: "object",
		Properties: map[string]genai.Property{
			"summary":   {Type: "string", Description: "2-3 sentence summary of the call"},
			"keyPoints": {Type: "array", Description: "3-6 key facts", Items: &genai.Property{Type: "string"}},
			"actionItems": {Type: "array", Description: "Concrete follow-ups, possibly empty",
				Items: &genai.Property{Type: "string"}},
			"productsMentioned": {Type: "array", Description: "Products referenced on the call",
				Items: &genai.Property{
					Type: "object",
					Properties: map[string]genai.Property{
						"name":     {Type: "string"},
						"brand":    {Type: "string"},
						"category": {Type: "string"},
					},
					Required: []string{"name"},
				}},
		},
		Required: []string{"summary", "keyPoints", "actionItems", "productsMentioned"},
	}
}
