package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/api/option"
)

const glassesPrompt = `Look at the person in this photo. Are they wearing eyeglasses or sunglasses?
Answer only with JSON: {"glasses_detected": true} or {"glasses_detected": false}.`

type IGemini interface {
	AnalyzeImage(ctx context.Context, base64Image string, prompt string) (string, error)
	DetectGlasses(ctx context.Context, image string) (bool, error)
	Close()
}

type geminiClient struct {
	apiKey    string
	modelName string
	client    *genai.Client
}

func NewGeminiClient() (IGemini, error) {

	apiKey := os.Getenv("GEMINI_API_KEY")

	modelName := os.Getenv("GEMINI_MODEL_NAME")
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &geminiClient{
		apiKey:    apiKey,
		modelName: modelName,
		client:    client,
	}, nil
}

// AnalyzeImage accepts raw base64 or a data URL.
func (g *geminiClient) AnalyzeImage(ctx context.Context, base64Image string, prompt string) (string, error) {
	mimeType, payload := splitDataURL(base64Image)
	imgData, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", errors.New("invalid base64 image data")
	}

	model := g.client.GenerativeModel(g.modelName)

	if prompt == "" {
		prompt = "Analyze this image and provide details in JSON format."
	}

	img := genai.ImageData(strings.TrimPrefix(mimeType, "image/"), imgData)
	res, err := model.GenerateContent(ctx, genai.Text(prompt), img)
	if err != nil {
		return "", err
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from Gemini API")
	}

	response := res.Candidates[0].Content.Parts[0]
	text, ok := response.(genai.Text)
	if !ok {
		return "", errors.New("unexpected response format from Gemini API")
	}

	return string(text), nil
}

func (g *geminiClient) DetectGlasses(ctx context.Context, image string) (bool, error) {
	text, err := g.AnalyzeImage(ctx, image, glassesPrompt)
	if err != nil {
		return false, err
	}
	return ParseGlassesAnswer(text)
}

func (g *geminiClient) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

// ParseGlassesAnswer reads the model's JSON answer, tolerating markdown code
// fences around it.
func ParseGlassesAnswer(text string) (bool, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var answer struct {
		GlassesDetected *bool `json:"glasses_detected"`
	}
	if err := jsoniter.UnmarshalFromString(strings.TrimSpace(text), &answer); err != nil {
		return false, fmt.Errorf("unexpected gemini answer %q: %w", text, err)
	}
	if answer.GlassesDetected == nil {
		return false, fmt.Errorf("gemini answer %q has no glasses_detected", text)
	}
	return *answer.GlassesDetected, nil
}

func splitDataURL(s string) (string, string) {
	if !strings.HasPrefix(s, "data:") {
		return "image/jpeg", s
	}
	header, payload, found := strings.Cut(s, ",")
	if !found {
		return "image/jpeg", s
	}
	mimeType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return mimeType, payload
}
