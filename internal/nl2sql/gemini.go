package nl2sql

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-pro"

type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiService struct {
	models      contentGenerator
	model       string
	temperature float32
}

func NewGeminiService(ctx context.Context, cfg GeminiConfig) (*GeminiService, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiService(client.Models, cfg.Model, cfg.Temperature), nil
}

func newGeminiService(models contentGenerator, model string, temperature float64) *GeminiService {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiService{
		models:      models,
		model:       model,
		temperature: float32(temperature),
	}
}

func (s *GeminiService) Info() ServiceInfo {
	return ServiceInfo{Provider: "gemini", Model: s.model}
}

func (s *GeminiService) Generate(ctx context.Context, prompt Prompt) (string, error) {
	resp, err := s.models.GenerateContent(ctx, s.model, genai.Text(prompt.User), s.generateConfig(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("generate content: empty candidate list")
	}
	return resp.Text(), nil
}

func (s *GeminiService) generateConfig(prompt Prompt) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr(s.temperature),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    geminiResponseSchema(),
	}
}

func geminiResponseSchema() *genai.Schema {
	properties := make(map[string]*genai.Schema, len(stageFields))
	for _, field := range stageFields {
		leaf := &genai.Schema{Type: genai.TypeString, Description: field.Description}
		if field.Array {
			leaf = &genai.Schema{
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: field.Description,
			}
		}
		if field.Nested == "" {
			properties[field.Name] = leaf
			continue
		}
		properties[field.Name] = &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{field.Nested: leaf},
		}
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       properties,
		Required:         requiredFields(),
		PropertyOrdering: requiredFields(),
	}
}
