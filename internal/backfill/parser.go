// Package backfill recovers historical transactions from archived bank
// statement PDFs. A vision model extracts the transaction table from
// each statement; the extracted rows come back as bank-shaped raw
// records and flow through the standard normalizer like any live feed.
package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the default Gemini model used for statement parsing.
const DefaultModelName = "gemini-2.5-flash"

// parseStatementWithModel sends the PDF to Gemini and returns the parsed
// output. It expects the model to return a STRICT JSON array of
// transactions.
func parseStatementWithModel(ctx context.Context, pdfBytes []byte, modelName string) ([]interface{}, error) {
	basePrompt :=
		"You are a financial statement parser for US bank PDF eStatements.\n\n" +
			"Task:\n" +
			"- Parse ALL transactions in the attached bank statement.\n" +
			"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
			"- Output a JSON array of objects.\n\n" +
			"Each object must have these fields:\n" +
			"- \"date\": string, ISO format \"YYYY-MM-DD\" (the posting date)\n" +
			"- \"description\": string, the transaction description exactly as printed\n" +
			"- \"amount\": number (positive for deposits, negative for withdrawals)\n" +
			"- \"type\": string or null (e.g. \"Debit Card\", \"ACH\", \"Check\")\n\n"

	rulesPrompt :=
		"Rules:\n" +
			"- If the statement has separate deposit / withdrawal columns, convert to a single signed \"amount\".\n" +
			"- Keep embedded transaction dates inside descriptions untouched.\n" +
			"- Skip balance summary lines; only emit transactions.\n\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Do NOT use ```json or any Markdown.\n" +
			"Output must begin with \"[\" and end with \"]\".\n"

	fullPrompt := basePrompt + rulesPrompt

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("parseStatementWithModel: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: fullPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: "application/pdf",
						Data:     pdfBytes,
					},
				},
			},
		},
	}

	if modelName == "" {
		modelName = DefaultModelName
	}
	resp, err := client.Models.GenerateContent(ctx, modelName, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("parseStatementWithModel: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("parseStatementWithModel: empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var parsed []interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("parseStatementWithModel: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}

	return parsed, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: if there's still junk around the JSON array,
	// keep only from the first '[' to the last ']'.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}
