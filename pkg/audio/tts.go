package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

// ISpeech synthesizes spoken guidance.
type ISpeech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type TTSService struct {
	apiKey  string
	voiceID string
	baseURL string
	timeout time.Duration
}

func NewTTSService(apiKey, voiceID string) *TTSService {
	return &TTSService{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: "https://api.elevenlabs.io/v1/text-to-speech/",
		timeout: 30 * time.Second,
	}
}

func NewFromEnv() (ISpeech, error) {
	apiKey := os.Getenv("ELEVENLABS_API_KEY")
	voiceID := os.Getenv("ELEVENLABS_VOICE_ID")
	if apiKey == "" || voiceID == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY and ELEVENLABS_VOICE_ID are required")
	}

	tts := NewTTSService(apiKey, voiceID)
	if base := os.Getenv("ELEVENLABS_BASE_URL"); base != "" {
		tts.baseURL = base
	}
	return tts, nil
}

// Synthesize returns MPEG audio for text.
func (tts *TTSService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requestBody := map[string]interface{}{
		"text":     text,
		"model_id": "eleven_multilingual_v2",
		"voice_settings": map[string]interface{}{
			"stability":         0.5,
			"similarity_boost":  0.8,
			"style":             0.0,
			"use_speaker_boost": true,
		},
	}

	a := fiber.Post(tts.baseURL + tts.voiceID)
	a.JSONEncoder(jsoniter.Marshal)
	a.JSON(requestBody)
	a.Set(fiber.HeaderAccept, "audio/mpeg")
	a.Set("xi-api-key", tts.apiKey)
	a.Timeout(tts.timeout)
	if err := a.Parse(); err != nil {
		return nil, err
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("text-to-speech request failed: %v", errs[0])
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("text-to-speech API error: status %d", code)
	}

	return body, nil
}
