// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/calc"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/wiki"
)

// Summarizer is the knowledge-lookup surface the responder needs.
// *wiki.Client implements it.
type Summarizer interface {
	Lookup(ctx context.Context, query string) (wiki.Summary, error)
}

// arithmeticRe matches input that is plausibly a calculation: digits and
// arithmetic characters only, with at least one digit and one operator.
var arithmeticRe = regexp.MustCompile(`^[0-9+\-*/().\s]*[0-9][0-9+\-*/().\s]*[+\-*/][0-9+\-*/().\s]*$`)

// topicPrefixes are stripped from a question to get the lookup topic.
var topicPrefixes = []string{
	"what is", "who is", "who was", "tell me about", "search for", "search",
	"nedir", "kimdir", "hakkında bilgi ver", "ara",
}

// Responder answers one chat's messages. Each chat gets its own instance so
// its running history is isolated, mirroring a per-conversation model
// session.
type Responder struct {
	mu       sync.Mutex
	wiki     Summarizer
	created  time.Time
	lastUsed time.Time
	turns    int
}

// NewResponder creates a responder backed by the given lookup service.
func NewResponder(w Summarizer) *Responder {
	now := time.Now()
	return &Responder{wiki: w, created: now, lastUsed: now}
}

// Respond produces the full reply for one user message. Calculation input
// goes to the expression evaluator; everything else is treated as a
// knowledge question and answered from Wikipedia.
func (r *Responder) Respond(ctx context.Context, message string) (string, error) {
	r.mu.Lock()
	r.turns++
	r.lastUsed = time.Now()
	r.mu.Unlock()

	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("empty message")
	}

	if arithmeticRe.MatchString(message) {
		return r.respondCalculation(message)
	}
	return r.respondLookup(ctx, message)
}

// Turns returns how many messages this responder has answered.
func (r *Responder) Turns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.turns
}

// Reset clears the responder's running history.
func (r *Responder) Reset() {
	r.mu.Lock()
	r.turns = 0
	r.mu.Unlock()
}

func (r *Responder) respondCalculation(message string) (string, error) {
	result, err := calc.Calculate(message)
	if err != nil {
		// Guard-rail rejections are answers, not failures: the user typed
		// something the calculator refuses, and should be told why.
		return fmt.Sprintf("I couldn't calculate that: %s", err.Error()), nil
	}
	return fmt.Sprintf("**%s** = %s", strings.TrimSpace(message), result.Formatted), nil
}

func (r *Responder) respondLookup(ctx context.Context, message string) (string, error) {
	topic := extractTopic(message)

	summary, err := r.wiki.Lookup(ctx, topic)
	if err != nil {
		if errors.Is(err, wiki.ErrNotFound) {
			return fmt.Sprintf("I couldn't find anything about \"%s\". Try different keywords.", topic), nil
		}
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n%s", summary.Title, summary.Extract)
	if summary.URL != "" {
		fmt.Fprintf(&sb, "\n\n[Read more](%s)", summary.URL)
	}
	return sb.String(), nil
}

// extractTopic strips question scaffolding and punctuation from a message,
// leaving the thing to look up. Turkish question words trail the topic
// ("Atatürk kimdir"), English ones lead it ("who is Atatürk").
func extractTopic(message string) string {
	topic := strings.Trim(strings.TrimSpace(message), "?!.,;: ")
	for _, marker := range topicPrefixes {
		if len(topic) > len(marker)+1 {
			if strings.EqualFold(topic[:len(marker)], marker) && topic[len(marker)] == ' ' {
				topic = strings.TrimSpace(topic[len(marker):])
				break
			}
			if strings.EqualFold(topic[len(topic)-len(marker):], marker) && topic[len(topic)-len(marker)-1] == ' ' {
				topic = strings.TrimSpace(topic[:len(topic)-len(marker)])
				break
			}
		}
	}
	return strings.Trim(topic, "?!.,;: ")
}
