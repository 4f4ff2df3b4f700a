package analysis

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mealsnap/mealsnap/internal/infra/llm/gemini"
	apperrors "github.com/mealsnap/mealsnap/pkg/errors"
	"github.com/mealsnap/mealsnap/pkg/metrics"
)

// FallbackErrorMessage is shown when an analysis failure carries no message.
const FallbackErrorMessage = "识别失败，请重试"

const instruction = "请识别图片中最主要的一种食物并给出营养分析。" +
	"如果画面包含多种食物，选择最居中或占比最大的一种并给出最佳估计。" +
	"如果图片中没有食物，foodName 返回「" + NoFoodName + "」，所有数字字段填 0，并在 description 中说明原因。" +
	"healthTips 提供 3 条简短的健康建议。giLevel 与 purineLevel 必须与数值一致：" +
	"GI 低于 55 为 LOW、56 到 69 为 MEDIUM、高于 70 为 HIGH；" +
	"嘌呤低于 50mg 为 LOW、50 到 150mg 为 MEDIUM、高于 150mg 为 HIGH。所有文本使用简体中文。"

// SpeechSampleRate is the PCM rate requested from the speech model.
const SpeechSampleRate = 24000

// SpeechClip holds synthesized audio as normalized mono samples.
type SpeechClip struct {
	SampleRate int
	Samples    []float32
}

// Empty reports whether the clip carries no playable audio.
func (c SpeechClip) Empty() bool {
	return len(c.Samples) == 0
}

// Config wires runtime settings for the analysis domain.
type Config struct {
	VisionModel string
	SpeechModel string
	SpeechVoice string
	Temperature float32
}

// Service exposes the remote food analysis capabilities.
type Service interface {
	Analyze(ctx context.Context, imageSrc string) (FoodAnalysis, error)
	SynthesizeSpeech(ctx context.Context, a FoodAnalysis) (SpeechClip, error)
}

// GenAIClient is the slice of the Gemini client the service depends on.
type GenAIClient interface {
	GenerateContent(ctx context.Context, model string, req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error)
}

// UnconfiguredClient stands in when no API credential is configured. The app
// still serves every screen; each analysis attempt fails at the point of use
// like any other remote failure.
type UnconfiguredClient struct{}

func (UnconfiguredClient) GenerateContent(context.Context, string, gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
	return gemini.GenerateContentResponse{}, errors.New("llm api key is not configured")
}

type service struct {
	cfg    Config
	client GenAIClient
	logger *slog.Logger
}

// NewService wires up the analysis domain.
func NewService(cfg Config, client GenAIClient, logger *slog.Logger) Service {
	return &service{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "analysis.service"),
	}
}

// Analyze sends the captured image to the vision model and returns the
// structured estimate, or exactly one of the declared analysis errors.
func (s *service) Analyze(ctx context.Context, imageSrc string) (FoodAnalysis, error) {
	mimeType, data := splitImageSource(imageSrc)
	if data == "" {
		return FoodAnalysis{}, apperrors.Wrap("invalid_input", "image payload is empty", nil)
	}

	req := gemini.GenerateContentRequest{
		Contents: []gemini.Content{{
			Parts: []gemini.Part{
				{InlineData: &gemini.Blob{MIMEType: mimeType, Data: data}},
				{Text: instruction},
			},
		}},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:      s.cfg.Temperature,
			ResponseMIMEType: "application/json",
			ResponseSchema:   foodAnalysisSchema(),
		},
	}

	resp, err := s.client.GenerateContent(ctx, s.cfg.VisionModel, req)
	if err != nil {
		return FoodAnalysis{}, apperrors.Wrap("analysis_transport_error", FallbackErrorMessage, err)
	}
	s.logUsage(resp.UsageMetadata)

	raw := resp.FirstText()
	if strings.TrimSpace(raw) == "" {
		return FoodAnalysis{}, apperrors.Wrap("analysis_empty_response", FallbackErrorMessage, nil)
	}

	result, err := parseFoodAnalysis(raw)
	if err != nil {
		return FoodAnalysis{}, apperrors.Wrap("analysis_malformed_response", FallbackErrorMessage, err)
	}
	s.logger.Info("food analyzed", "food", result.FoodName, "calories", result.Calories)
	return result, nil
}

// SynthesizeSpeech renders a short spoken summary of the analysis.
func (s *service) SynthesizeSpeech(ctx context.Context, a FoodAnalysis) (SpeechClip, error) {
	req := gemini.GenerateContentRequest{
		Contents: []gemini.Content{{
			Parts: []gemini.Part{{Text: speechScript(a)}},
		}},
		GenerationConfig: &gemini.GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &gemini.SpeechConfig{
				VoiceConfig: gemini.VoiceConfig{
					PrebuiltVoiceConfig: gemini.PrebuiltVoiceConfig{VoiceName: s.cfg.SpeechVoice},
				},
			},
		},
	}

	resp, err := s.client.GenerateContent(ctx, s.cfg.SpeechModel, req)
	if err != nil {
		return SpeechClip{}, apperrors.Wrap("speech_error", "speech synthesis failed", err)
	}
	s.logUsage(resp.UsageMetadata)

	blob := resp.FirstBlob()
	if blob == nil {
		return SpeechClip{}, apperrors.Wrap("speech_error", "no audio generated", nil)
	}
	pcm, err := base64.StdEncoding.DecodeString(blob.Data)
	if err != nil {
		return SpeechClip{}, apperrors.Wrap("speech_error", "no audio generated", err)
	}
	clip := SpeechClip{
		SampleRate: SpeechSampleRate,
		Samples:    decodePCM16(pcm),
	}
	if clip.Empty() {
		return SpeechClip{}, apperrors.Wrap("speech_error", "no audio generated", nil)
	}
	return clip, nil
}

func (s *service) logUsage(meta *gemini.UsageMetadata) {
	if meta == nil {
		return
	}
	usage := metrics.TokenUsage{
		PromptTokens:     meta.PromptTokenCount,
		CompletionTokens: meta.CandidatesTokenCount,
		TotalTokens:      meta.TotalTokenCount,
	}
	if !usage.IsZero() {
		s.logger.Debug("model usage", "promptTokens", usage.PromptTokens, "completionTokens", usage.CompletionTokens, "totalTokens", usage.TotalTokens)
	}
}

func speechScript(a FoodAnalysis) string {
	tip := ""
	if len(a.HealthTips) > 0 {
		tip = a.HealthTips[0]
	}
	script := fmt.Sprintf("这道菜是%s，大约含有%.0f千卡热量。", a.FoodName, a.Calories)
	if tip != "" {
		script += tip
	}
	return script
}

// splitImageSource strips an optional data-URI prefix and returns the mime
// type plus the raw base64 payload.
func splitImageSource(src string) (string, string) {
	trimmed := strings.TrimSpace(src)
	if !strings.HasPrefix(trimmed, "data:") {
		return "image/jpeg", trimmed
	}
	rest := strings.TrimPrefix(trimmed, "data:")
	idx := strings.Index(rest, ",")
	if idx < 0 {
		return "image/jpeg", ""
	}
	meta, payload := rest[:idx], rest[idx+1:]
	mimeType := strings.TrimSuffix(meta, ";base64")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return mimeType, payload
}

func parseFoodAnalysis(raw string) (FoodAnalysis, error) {
	sanitized := strings.TrimSpace(raw)
	sanitized = strings.TrimPrefix(sanitized, "```json")
	sanitized = strings.TrimSuffix(sanitized, "```")
	sanitized = strings.Trim(sanitized, "`")
	sanitized = strings.TrimSpace(strings.TrimPrefix(sanitized, "json"))

	var result FoodAnalysis
	if err := json.Unmarshal([]byte(sanitized), &result); err != nil {
		return FoodAnalysis{}, err
	}
	if err := result.Validate(); err != nil {
		return FoodAnalysis{}, err
	}
	return result, nil
}

// decodePCM16 converts little-endian 16-bit samples to floats in [-1, 1].
func decodePCM16(pcm []byte) []float32 {
	count := len(pcm) / 2
	samples := make([]float32, 0, count)
	for i := 0; i+1 < len(pcm); i += 2 {
		v := int16(binary.LittleEndian.Uint16(pcm[i:]))
		samples = append(samples, float32(v)/32768)
	}
	return samples
}

func foodAnalysisSchema() *gemini.Schema {
	levelSchema := &gemini.Schema{
		Type: "string",
		Enum: []string{string(LevelLow), string(LevelMedium), string(LevelHigh)},
	}
	return &gemini.Schema{
		Type: "object",
		Properties: map[string]*gemini.Schema{
			"foodName":      {Type: "string"},
			"calories":      {Type: "number"},
			"servingSize":   {Type: "string"},
			"giIndex":       {Type: "number"},
			"giLevel":       levelSchema,
			"purineContent": {Type: "string"},
			"purineLevel":   levelSchema,
			"macros": {
				Type: "object",
				Properties: map[string]*gemini.Schema{
					"protein": {Type: "number"},
					"carbs":   {Type: "number"},
					"fat":     {Type: "number"},
				},
				Required: []string{"protein", "carbs", "fat"},
			},
			"healthTips":  {Type: "array", Items: &gemini.Schema{Type: "string"}},
			"description": {Type: "string"},
		},
		Required: []string{
			"foodName", "calories", "servingSize", "giIndex", "giLevel",
			"purineContent", "purineLevel", "macros", "healthTips", "description",
		},
	}
}
