package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
	"github.com/fairyhunter13/harvest-gateway/pkg/textx"
)

const verifyPromptTemplate = `You are a HOSTILE, STRICT AUDITOR for an electronics recycling facility.
Your job is to REJECT images that do not clearly show the specific component.

Context:
- Expected Component: %[1]q
- Source Device: %[2]q

INSTRUCTIONS:
1. First, identify the MAIN SUBJECT of the image (e.g., "A person's face", "A cat", "A ceiling fan", "A circuit board").
2. If the main subject is a PERSON, SELFIE, ANIMAL, or FURNITURE -> REJECT IMMEDIATELY.
3. If the image is blurry, dark, or vague -> REJECT IMMEDIATELY.
4. Compare the identified subject to the visual traits of a %[1]q.
   - If the image shows a generic circuit board but the expected part has distinctive parts (bulky capacitors, transformers, connectors) and you don't see those -> REJECT.

You must be 95%% confident to return "verified". When in doubt, return "mismatch".

Return JSON:
{
  "detected_objects": ["list", "of", "visible", "items"],
  "status": "verified" | "mismatch",
  "condition": "Mint" | "Good" | "Fair" | "Poor",
  "confidence": number (0.0 to 1.0),
  "reasoning": "I see [detected_objects]. This does or does not match the expected component because..."
}`

const wastePromptTemplate = `You are a sustainability expert for an electronics recycling project.
Calculate the total weight (in kilograms) of the following electronic parts that have been saved from a landfill.

Dismantled Components:
%s

INSTRUCTIONS:
1. Estimate the standard weight for each listed component based on the device type.
2. Sum them up to get the total weight diverted.
3. Be realistic (e.g., a laptop battery is ~0.3kg, a screen assembly ~0.5kg, a motherboard ~0.2kg).
4. Return ONLY a JSON object with the total and a brief breakdown.

Return JSON:
{
  "total_kg": number,
  "breakdown": "A short summary of what was calculated"
}`

const pricingInstructions = `
Return ONLY a JSON object mapping each item id to its price in INR as a non-negative integer (round up):
{
%s
}`

const listingContextTemplate = `You are a currency and valuation expert for a recycling marketplace in India.
Convert the following list of electronic components with prices in %[1]s to INR.
Use a reasonable current exchange rate.

Listings:
%[2]s`

func verifyPrompt(deviceName, expected string) string {
	return fmt.Sprintf(verifyPromptTemplate, textx.SingleLine(expected), textx.SingleLine(deviceName))
}

func wastePrompt(components []domain.ComponentRef) string {
	lines := make([]string, 0, len(components))
	for _, c := range components {
		lines = append(lines, fmt.Sprintf("- %s from a %s", textx.SingleLine(c.Name), textx.SingleLine(c.Device)))
	}
	return fmt.Sprintf(wastePromptTemplate, strings.Join(lines, "\n"))
}

// pricingPrompt appends the output contract to the caller's free-form context.
func pricingPrompt(q domain.PricingQuery) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(q.Context))
	b.WriteString("\n")
	if len(q.ItemIDs) == 0 {
		b.WriteString(fmt.Sprintf(pricingInstructions, `  "<item id>": number`))
		return b.String()
	}
	keys := make([]string, 0, len(q.ItemIDs))
	for _, id := range q.ItemIDs {
		keys = append(keys, fmt.Sprintf("  %s: number", strconv.Quote(id)))
	}
	b.WriteString(fmt.Sprintf(pricingInstructions, strings.Join(keys, ",\n")))
	return b.String()
}

// ListingsQuery renders marketplace listings into a pricing query whose ids are the listing ids.
func ListingsQuery(listings []domain.Listing, currency string) domain.PricingQuery {
	if currency == "" {
		currency = "USD"
	}
	lines := make([]string, 0, len(listings))
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		id := textx.SingleLine(l.ID)
		lines = append(lines, fmt.Sprintf("- ID: %s, Name: %s, %s: %s",
			id, textx.SingleLine(l.Name), currency, strconv.FormatFloat(l.Price, 'f', -1, 64)))
		ids = append(ids, id)
	}
	return domain.PricingQuery{
		Context: fmt.Sprintf(listingContextTemplate, currency, strings.Join(lines, "\n")),
		ItemIDs: ids,
	}
}
