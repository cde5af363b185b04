// Package docai extracts structured accounting fields from document text
// or rendered document images using the OpenAI chat API in JSON mode.
package docai
