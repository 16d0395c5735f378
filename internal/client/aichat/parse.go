// Package aichat keeps the per-patient conversation with the AI assistant.
package aichat

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
)

var fencedJSON = regexp.MustCompile("(?is)```json\\s*(.+?)\\s*```")

// Answer is the assistant's reasoning and its reply.
type Answer struct {
	Thought string
	Answer  string
}

// ParseAnswer normalises a reply. Models often return the whole reply as a
// JSON object, optionally inside a ```json fence, in the answer field; its
// thought and answer then take precedence over the outer ones.
func ParseAnswer(thought, answer string) Answer {
	if inner, ok := parseJSONBlock(answer); ok {
		if inner.Thought != "" {
			thought = inner.Thought
		}
		if inner.Answer != "" {
			answer = inner.Answer
		}
	}
	return Answer{Thought: strings.TrimSpace(thought), Answer: strings.TrimSpace(answer)}
}

func parseJSONBlock(text string) (Answer, bool) {
	candidate := strings.TrimSpace(text)
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidate = strings.TrimSpace(m[1])
	}
	if !strings.HasPrefix(candidate, "{") || !strings.HasSuffix(candidate, "}") {
		return Answer{}, false
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return Answer{}, false
	}
	a := Answer{}
	a.Thought, _ = raw["thought"].(string)
	a.Answer, _ = raw["answer"].(string)
	if a.Thought == "" && a.Answer == "" {
		return Answer{}, false
	}
	return a, true
}

// ParseHistory turns stored transcripts of the form
// "Doctor: <query>\nAI: <answer>" into exchanges of patientID.
func ParseHistory(patientID string, entries []client.HistoryEntry) []models.AIExchange {
	out := make([]models.AIExchange, 0, len(entries))
	for _, e := range entries {
		query, rawAnswer, _ := strings.Cut(e.FullTranscript, "\nAI:")
		query = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(query), "Doctor:"))
		a := ParseAnswer("", rawAnswer)

		out = append(out, models.AIExchange{
			ID:        e.ID,
			PatientID: patientID,
			Query:     query,
			Thought:   a.Thought,
			Answer:    a.Answer,
			Timestamp: e.Timestamp,
			Status:    models.StatusSent,
		})
	}
	return out
}
