// Package speech reads questions aloud. It tries the hosted ElevenLabs
// voice first, then the OpenAI voice, and finally instructs the client to
// synthesise locally when no hosted provider is available.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/sashabaranov/go-openai"
)

const (
	elevenLabsEndpoint = "https://api.elevenlabs.io/v1/text-to-speech"
	elevenLabsVoiceID  = "Hh0rE70WfnSFN80K8uJC"
	elevenLabsModelID  = "eleven_turbo_v2_5"

	// Local synthesis reads slightly slower than the hosted voices.
	fallbackRate = 0.85

	cacheKeyLength = 50
)

// Result is one playable utterance. When Fallback is set the client should
// synthesise Text locally at Rate instead of playing Audio.
type Result struct {
	Audio       []byte
	ContentType string
	Fallback    bool
	Text        string
	Rate        float64
}

type cacheEntry struct {
	audio       []byte
	contentType string
}

// Service synthesises speech for question prompts and caches the audio per
// utterance so repeated visits to a question do not repeat vendor calls.
type Service struct {
	logger     *slog.Logger
	httpClient *http.Client
	elevenKey  string
	openAI     *openai.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewService wires the hosted providers from the given credentials. An empty
// key disables that provider without any network probing.
func NewService(elevenLabsKey, openAIKey string, logger *slog.Logger) *Service {
	s := Service{
		logger:     logger.With("source", "SpeechService"),
		httpClient: &http.Client{},
		elevenKey:  elevenLabsKey,
		cache:      make(map[string]cacheEntry),
	}
	if openAIKey != "" {
		s.openAI = openai.NewClient(openAIKey)
	}
	return &s
}

// Hosted reports whether any hosted voice is configured.
func (s *Service) Hosted() bool {
	return s.elevenKey != "" || s.openAI != nil
}

// Speak synthesises the text, preferring ElevenLabs, then OpenAI, then the
// local fallback directive. Hosted failures degrade down the chain instead
// of surfacing to the storyteller.
func (s *Service) Speak(ctx context.Context, text string) (*Result, error) {
	key := cacheKey(text)

	s.mu.Lock()
	if entry, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return &Result{Audio: entry.audio, ContentType: entry.contentType}, nil
	}
	s.mu.Unlock()

	if s.elevenKey != "" {
		result, err := s.speakElevenLabs(ctx, text)
		if err == nil {
			s.store(key, result)
			return result, nil
		}
		s.logger.LogAttrs(ctx, slog.LevelWarn, "elevenlabs synthesis failed", errors.SlogError(err))
	}

	if s.openAI != nil {
		result, err := s.speakOpenAI(ctx, text)
		if err == nil {
			s.store(key, result)
			return result, nil
		}
		s.logger.LogAttrs(ctx, slog.LevelWarn, "openai synthesis failed", errors.SlogError(err))
	}

	return &Result{Fallback: true, Text: text, Rate: fallbackRate}, nil
}

func (s *Service) store(key string, result *Result) {
	s.mu.Lock()
	s.cache[key] = cacheEntry{audio: result.Audio, contentType: result.ContentType}
	s.mu.Unlock()
}

type elevenLabsRequest struct {
	Text          string                `json:"text"`
	ModelID       string                `json:"model_id"`
	VoiceSettings elevenLabsVoiceTuning `json:"voice_settings"`
}

type elevenLabsVoiceTuning struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
}

func (s *Service) speakElevenLabs(ctx context.Context, text string) (*Result, error) {
	payload := elevenLabsRequest{
		Text:    addNaturalPauses(text),
		ModelID: elevenLabsModelID,
		VoiceSettings: elevenLabsVoiceTuning{
			Stability:       0.7,
			SimilarityBoost: 0.75,
			Style:           0.2,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "JSON encode synthesis request")
	}

	url := fmt.Sprintf("%s/%s", elevenLabsEndpoint, elevenLabsVoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "new synthesis request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.elevenKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "post synthesis request")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "close synthesis response",
				errors.SlogError(errors.Wrap(closeErr, "close body")))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("synthesis request failed", slog.Int("status", resp.StatusCode))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read synthesis response")
	}
	return &Result{Audio: audio, ContentType: "audio/mpeg"}, nil
}

func (s *Service) speakOpenAI(ctx context.Context, text string) (*Result, error) {
	resp, err := s.openAI.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          addNaturalPauses(text),
		Voice:          openai.VoiceNova,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create speech")
	}
	defer func() {
		if closeErr := resp.Close(); closeErr != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "close speech response",
				errors.SlogError(errors.Wrap(closeErr, "close body")))
		}
	}()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, errors.Wrap(err, "read speech response")
	}
	return &Result{Audio: audio, ContentType: "audio/mpeg"}, nil
}

// addNaturalPauses stretches punctuation so the synthesised voice breathes
// between sentences instead of rushing through the question.
func addNaturalPauses(text string) string {
	text = strings.ReplaceAll(text, ".", "...")
	text = strings.ReplaceAll(text, "?", "?...")
	text = strings.ReplaceAll(text, ",", "..")
	return text
}

// cacheKey derives a stable per-utterance key from the text itself.
func cacheKey(text string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	if len(encoded) > cacheKeyLength {
		return encoded[:cacheKeyLength]
	}
	return encoded
}
