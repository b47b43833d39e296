package reply

import (
	"fmt"
	"strings"
)

type Tone string

const (
	Professional Tone = "Professional"
	Friendly     Tone = "Friendly"
	Apologetic   Tone = "Apologetic"
	Persuasive   Tone = "Persuasive"
)

func Tones() []Tone {
	return []Tone{Professional, Friendly, Apologetic, Persuasive}
}

// ParseTone matches case-insensitively and falls back to Professional.
func ParseTone(s string) Tone {
	for _, t := range Tones() {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t
		}
	}
	return Professional
}

func (t Tone) description() string {
	switch t {
	case Professional:
		return "professional, formal, and business-like"
	case Friendly:
		return "warm, friendly, and conversational"
	case Apologetic:
		return "apologetic, understanding, and empathetic"
	case Persuasive:
		return "persuasive, confident, and compelling"
	default:
		return "professional and polite"
	}
}

// Request is the input to every reply generator.
type Request struct {
	Original string
	Tone     Tone
	Context  string
}

// Prompt renders the instruction sent to a generative model.
func Prompt(req Request) string {
	desc := req.Tone.description()
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are an email assistant. Generate a %s reply to the following email.\n\n", desc)
	sb.WriteString("Original Email:\n---\n")
	sb.WriteString(req.Original)
	sb.WriteString("\n---\n\n")

	if req.Context != "" {
		sb.WriteString("Important Information to Include:\n")
		sb.WriteString(req.Context)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Instructions:\n")
	fmt.Fprintf(&sb, "1. Write a clear, concise reply in a %s tone\n", desc)
	sb.WriteString("2. Address the main points from the original email\n")
	sb.WriteString("3. Keep the response professional and appropriate\n")
	sb.WriteString("4. Do not include subject line or email headers\n")
	sb.WriteString("5. Write only the email body text\n")
	if req.Context != "" {
		sb.WriteString("6. Incorporate the important information provided\n")
	}
	sb.WriteString("\nGenerate the email reply now:")

	return sb.String()
}

// Template renders the deterministic reply for req.Tone.
func Template(req Request) string {
	var opening, withContext, withoutContext, closing string

	switch req.Tone {
	case Friendly:
		opening = "Hi there!\n\nThanks so much for getting in touch! "
		withContext = "I wanted to let you know that %s\n\n"
		withoutContext = "I got your message and I'm happy to help!\n\n"
		closing = "Feel free to reach out if you have any questions - I'm always here to help!\n\nCheers"
	case Apologetic:
		opening = "Dear sender,\n\nI sincerely apologize for any inconvenience this may have caused. "
		withContext = "Please allow me to explain: %s\n\n"
		withoutContext = "I understand your concern and want to make this right.\n\n"
		closing = "I truly appreciate your patience and understanding in this matter.\n\nWith sincere apologies"
	case Persuasive:
		opening = "Thank you for considering this opportunity.\n\nI'm confident that this will be beneficial for all parties involved. "
		withContext = "Specifically, %s\n\n"
		withoutContext = "Let me outline the key benefits and value proposition.\n\n"
		closing = "I believe this is an excellent opportunity and I look forward to moving forward together.\n\nBest regards"
	default:
		opening = "Thank you for your email.\n\nI appreciate you reaching out. "
		withContext = "Regarding your inquiry, %s\n\n"
		withoutContext = "I have reviewed your message and would like to respond to your inquiry.\n\n"
		closing = "Please let me know if you need any additional information or clarification.\n\nBest regards"
	}

	middle := withoutContext
	if req.Context != "" {
		middle = fmt.Sprintf(withContext, req.Context)
	}
	return opening + middle + closing
}
