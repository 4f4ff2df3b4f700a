package analysis

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mealsnap/mealsnap/internal/infra/llm/gemini"
	apperrors "github.com/mealsnap/mealsnap/pkg/errors"
)

const validResultJSON = `{
	"foodName": "红烧排骨",
	"calories": 480,
	"servingSize": "一份（约 300 克）",
	"giIndex": 45,
	"giLevel": "LOW",
	"purineContent": "约 140mg/100g",
	"purineLevel": "MEDIUM",
	"macros": {"protein": 28, "carbs": 18, "fat": 31},
	"healthTips": ["注意油脂摄入", "搭配蔬菜", "控制份量"],
	"description": "红烧排骨是一道常见家常菜。"
}`

func newServiceUnderTest(client GenAIClient) *service {
	return &service{
		cfg: Config{
			VisionModel: "vision-test",
			SpeechModel: "speech-test",
			SpeechVoice: "Kore",
			Temperature: 0.2,
		},
		client: client,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func textResponse(text string) gemini.GenerateContentResponse {
	return gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{
			Content: gemini.Content{Parts: []gemini.Part{{Text: text}}},
		}},
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	stub := &stubGenAIClient{responses: []gemini.GenerateContentResponse{textResponse(validResultJSON)}}
	svc := newServiceUnderTest(stub)

	result, err := svc.Analyze(context.Background(), "data:image/jpeg;base64,QUJD")
	require.NoError(t, err)
	require.Equal(t, "红烧排骨", result.FoodName)
	require.Equal(t, LevelMedium, result.PurineLevel)
	require.Len(t, result.HealthTips, 3)

	require.Equal(t, "vision-test", stub.lastModel)
	require.Len(t, stub.lastRequest.Contents, 1)
	parts := stub.lastRequest.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	require.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
	require.Equal(t, "QUJD", parts[0].InlineData.Data)
	require.Equal(t, "application/json", stub.lastRequest.GenerationConfig.ResponseMIMEType)
	require.NotNil(t, stub.lastRequest.GenerationConfig.ResponseSchema)
}

func TestAnalyzeAcceptsFencedJSON(t *testing.T) {
	stub := &stubGenAIClient{responses: []gemini.GenerateContentResponse{
		textResponse("```json\n" + validResultJSON + "\n```"),
	}}
	svc := newServiceUnderTest(stub)

	result, err := svc.Analyze(context.Background(), "QUJD")
	require.NoError(t, err)
	require.Equal(t, "红烧排骨", result.FoodName)
}

func TestAnalyzeNoFoodSentinel(t *testing.T) {
	noFood := `{
		"foodName": "未识别到食物",
		"calories": 0, "servingSize": "", "giIndex": 0, "giLevel": "LOW",
		"purineContent": "", "purineLevel": "LOW",
		"macros": {"protein": 0, "carbs": 0, "fat": 0},
		"healthTips": [], "description": "画面中没有食物。"
	}`
	stub := &stubGenAIClient{responses: []gemini.GenerateContentResponse{textResponse(noFood)}}
	svc := newServiceUnderTest(stub)

	result, err := svc.Analyze(context.Background(), "QUJD")
	require.NoError(t, err)
	require.True(t, result.IsNoFood())
	require.Zero(t, result.Calories)
}

func TestAnalyzeEmptyImage(t *testing.T) {
	svc := newServiceUnderTest(&stubGenAIClient{})

	_, err := svc.Analyze(context.Background(), "   ")
	require.True(t, apperrors.IsCode(err, "invalid_input"))

	// A data URI without payload is equally empty.
	_, err = svc.Analyze(context.Background(), "data:image/jpeg;base64")
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestAnalyzeTransportFailure(t *testing.T) {
	stub := &stubGenAIClient{err: errors.New("connection refused")}
	svc := newServiceUnderTest(stub)

	_, err := svc.Analyze(context.Background(), "QUJD")
	require.True(t, apperrors.IsCode(err, "analysis_transport_error"))
	require.Equal(t, FallbackErrorMessage, apperrors.MessageOf(err, ""))
}

func TestAnalyzeEmptyResponse(t *testing.T) {
	stub := &stubGenAIClient{responses: []gemini.GenerateContentResponse{textResponse("  ")}}
	svc := newServiceUnderTest(stub)

	_, err := svc.Analyze(context.Background(), "QUJD")
	require.True(t, apperrors.IsCode(err, "analysis_empty_response"))
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	cases := []string{
		"not json at all",
		`{"foodName": ""}`,
		`{"foodName": "面条", "calories": -5, "giLevel": "LOW", "purineLevel": "LOW"}`,
	}
	for _, raw := range cases {
		stub := &stubGenAIClient{responses: []gemini.GenerateContentResponse{textResponse(raw)}}
		svc := newServiceUnderTest(stub)
		_, err := svc.Analyze(context.Background(), "QUJD")
		require.True(t, apperrors.IsCode(err, "analysis_malformed_response"), "raw=%s", raw)
	}
}

func TestSynthesizeSpeech(t *testing.T) {
	pcm := make([]byte, 8)
	for i, sample := range []int16{0, 16384, -16384, -32768} {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(sample))
	}

	stub := &stubGenAIClient{responses: []gemini.GenerateContentResponse{{
		Candidates: []gemini.Candidate{{
			Content: gemini.Content{Parts: []gemini.Part{{
				InlineData: &gemini.Blob{
					MIMEType: "audio/pcm",
					Data:     base64.StdEncoding.EncodeToString(pcm),
				},
			}}},
		}},
	}}}
	svc := newServiceUnderTest(stub)

	clip, err := svc.SynthesizeSpeech(context.Background(), FoodAnalysis{
		FoodName:   "牛肉面",
		Calories:   520,
		HealthTips: []string{"注意钠摄入"},
	})
	require.NoError(t, err)
	require.Equal(t, SpeechSampleRate, clip.SampleRate)
	require.Equal(t, []float32{0, 0.5, -0.5, -1}, clip.Samples)

	require.Equal(t, "speech-test", stub.lastModel)
	require.Equal(t, []string{"AUDIO"}, stub.lastRequest.GenerationConfig.ResponseModalities)
	require.Equal(t, "Kore", stub.lastRequest.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
	script := stub.lastRequest.Contents[0].Parts[0].Text
	require.Contains(t, script, "牛肉面")
	require.Contains(t, script, "520")
	require.Contains(t, script, "注意钠摄入")
}

func TestSynthesizeSpeechNoAudio(t *testing.T) {
	stub := &stubGenAIClient{responses: []gemini.GenerateContentResponse{textResponse("no audio here")}}
	svc := newServiceUnderTest(stub)

	_, err := svc.SynthesizeSpeech(context.Background(), FoodAnalysis{FoodName: "汤"})
	require.True(t, apperrors.IsCode(err, "speech_error"))
}

func TestUnconfiguredClientFailsAtCallTime(t *testing.T) {
	svc := newServiceUnderTest(UnconfiguredClient{})

	_, err := svc.Analyze(context.Background(), "QUJD")
	require.True(t, apperrors.IsCode(err, "analysis_transport_error"))
	require.Equal(t, FallbackErrorMessage, apperrors.MessageOf(err, ""))

	_, err = svc.SynthesizeSpeech(context.Background(), FoodAnalysis{FoodName: "粥"})
	require.True(t, apperrors.IsCode(err, "speech_error"))
}

func TestSplitImageSource(t *testing.T) {
	mime, data := splitImageSource("data:image/png;base64,QUJD")
	require.Equal(t, "image/png", mime)
	require.Equal(t, "QUJD", data)

	mime, data = splitImageSource("QUJD")
	require.Equal(t, "image/jpeg", mime)
	require.Equal(t, "QUJD", data)

	_, data = splitImageSource("data:image/jpeg;base64")
	require.Empty(t, data)
}

type stubGenAIClient struct {
	responses   []gemini.GenerateContentResponse
	err         error
	calls       int
	lastModel   string
	lastRequest gemini.GenerateContentRequest
}

func (s *stubGenAIClient) GenerateContent(_ context.Context, model string, req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
	s.lastModel = model
	s.lastRequest = req
	if s.err != nil {
		return gemini.GenerateContentResponse{}, s.err
	}
	if s.calls >= len(s.responses) {
		return gemini.GenerateContentResponse{}, nil
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}
