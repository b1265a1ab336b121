package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrImageGenerationFailed wraps every failure of the image agent.
var ErrImageGenerationFailed = errors.New("image generation failed")

// ErrNoImageProduced means the agent answered without a generated file.
var ErrNoImageProduced = errors.New("agent response contains no image file")

const toolFileChunk = "tool_file"

// AgentSpec describes the image agent to create.
type AgentSpec struct {
	Model        string
	Name         string
	Description  string
	Instructions string
	Temperature  float64
	TopP         float64
}

// DefaultAgentSpec returns the cover artist agent definition.
func DefaultAgentSpec(model, name string) AgentSpec {
	return AgentSpec{
		Model:        model,
		Name:         name,
		Description:  "Agent spécialisé dans la génération d'images conceptuelles pour jeux vidéo",
		Instructions: "Tu es un artiste conceptuel expert en jeux vidéo. Génère des images épiques et professionnelles qui capturent l'essence des univers de jeux.",
		Temperature:  0.7,
		TopP:         0.95,
	}
}

// AgentAPI is the remote agent service able to produce images.
type AgentAPI interface {
	// CreateAgent registers an agent with the image generation tool and returns its id.
	CreateAgent(ctx context.Context, spec AgentSpec) (string, error)
	// StartConversation sends inputs to the agent and returns the id of the first generated file.
	StartConversation(ctx context.Context, agentID, inputs string) (string, error)
	// DownloadFile returns the content of a generated file.
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

type createAgentRequest struct {
	Model          string           `json:"model"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Instructions   string           `json:"instructions,omitempty"`
	Tools          []agentTool      `json:"tools"`
	CompletionArgs agentSamplingArg `json:"completion_args"`
}

type agentTool struct {
	Type string `json:"type"`
}

type agentSamplingArg struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type agentResponse struct {
	ID string `json:"id"`
}

type conversationRequest struct {
	AgentID string `json:"agent_id"`
	Inputs  string `json:"inputs"`
}

type conversationResponse struct {
	ConversationID string               `json:"conversation_id"`
	Outputs        []conversationOutput `json:"outputs"`
}

type conversationOutput struct {
	Type string `json:"type"`
	// Content is either a plain string or a list of chunks.
	Content json.RawMessage `json:"content"`
}

type outputChunk struct {
	Type   string `json:"type"`
	FileID string `json:"file_id"`
}

// firstToolFile scans outputs in order and returns the first tool_file chunk id.
func firstToolFile(outputs []conversationOutput) (string, bool) {
	for _, out := range outputs {
		var chunks []outputChunk
		if len(out.Content) == 0 || out.Content[0] != '[' {
			continue
		}
		if err := json.Unmarshal(out.Content, &chunks); err != nil {
			continue
		}
		for _, chunk := range chunks {
			if chunk.Type == toolFileChunk && chunk.FileID != "" {
				return chunk.FileID, true
			}
		}
	}
	return "", false
}

// HTTPAgentClient talks to the Mistral agents, conversations and files endpoints.
type HTTPAgentClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPAgentClient returns an AgentAPI bound to baseURL (e.g. https://api.mistral.ai/v1).
func NewHTTPAgentClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPAgentClient {
	return &HTTPAgentClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("image_agent"),
	}
}

var _ AgentAPI = (*HTTPAgentClient)(nil)

func (c *HTTPAgentClient) CreateAgent(ctx context.Context, spec AgentSpec) (string, error) {
	body := createAgentRequest{
		Model:          spec.Model,
		Name:           spec.Name,
		Description:    spec.Description,
		Instructions:   spec.Instructions,
		Tools:          []agentTool{{Type: "image_generation"}},
		CompletionArgs: agentSamplingArg{Temperature: spec.Temperature, TopP: spec.TopP},
	}
	var resp agentResponse
	if err := c.postJSON(ctx, "/agents", body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: agent created without id", ErrImageGenerationFailed)
	}
	c.logger.Info("Image agent created", zap.String("agent_id", resp.ID), zap.String("model", spec.Model))
	return resp.ID, nil
}

func (c *HTTPAgentClient) StartConversation(ctx context.Context, agentID, inputs string) (string, error) {
	var resp conversationResponse
	if err := c.postJSON(ctx, "/conversations", conversationRequest{AgentID: agentID, Inputs: inputs}, &resp); err != nil {
		return "", err
	}
	fileID, ok := firstToolFile(resp.Outputs)
	if !ok {
		c.logger.Warn("Conversation produced no image",
			zap.String("conversation_id", resp.ConversationID),
			zap.Int("outputs", len(resp.Outputs)))
		return "", fmt.Errorf("%w: %w", ErrImageGenerationFailed, ErrNoImageProduced)
	}
	return fileID, nil
}

func (c *HTTPAgentClient) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	endpoint := c.baseURL + "/files/" + url.PathEscape(fileID) + "/content"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrImageGenerationFailed, err)
	}
	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file %s is empty", ErrImageGenerationFailed, fileID)
	}
	c.logger.Debug("Image downloaded", zap.String("file_id", fileID), zap.Int("bytes", len(data)))
	return data, nil
}

func (c *HTTPAgentClient) postJSON(ctx context.Context, path string, payload, out any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal request: %w", ErrImageGenerationFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", ErrImageGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	data, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %w", ErrImageGenerationFailed, path, err)
	}
	return nil
}

func (c *HTTPAgentClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	log := c.logger.With(zap.String("url", req.URL.Path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("Agent API request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: http request failed: %w", ErrImageGenerationFailed, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("Agent API returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", body))
		return nil, fmt.Errorf("%w: API returned status %d", ErrImageGenerationFailed, resp.StatusCode)
	}
	if readErr != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrImageGenerationFailed, readErr)
	}
	return body, nil
}
