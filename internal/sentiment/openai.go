package sentiment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"quantfund/internal/config"
)

const scorePrompt = `You are a market sentiment analyst. Given the ticker symbol %q and the date %s, estimate the prevailing news/market sentiment for the stock on that day. Respond with a single decimal number between -1 (extremely bearish) and 1 (extremely bullish) and nothing else.`

// OpenAIScorer 通过大模型估计标的情绪分数。仅作建议输入，评分失败不影响核心流程。
type OpenAIScorer struct {
	cfg    config.SentimentConfig
	logger *zap.Logger
	sdk    *openai.Client
}

// NewOpenAIScorer 使用给定配置创建评分器。
func NewOpenAIScorer(cfg config.SentimentConfig, logger *zap.Logger) (*OpenAIScorer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sentiment: api_key 不能为空")
	}
	if cfg.Model == "" {
		return nil, errors.New("sentiment: model 不能为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
	}

	return &OpenAIScorer{
		cfg:    cfg,
		logger: logger,
		sdk:    openai.NewClientWithConfig(clientCfg),
	}, nil
}

// Score 请求模型给出 [-1,1] 的情绪分数。
func (s *OpenAIScorer) Score(ctx context.Context, symbol string, date time.Time) (float64, error) {
	prompt := fmt.Sprintf(scorePrompt, symbol, date.UTC().Format("2006-01-02"))

	response, err := s.sdk.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		return 0, fmt.Errorf("sentiment: 调用OpenAI失败: %w", err)
	}
	if len(response.Choices) == 0 {
		return 0, errors.New("sentiment: OpenAI 返回结果为空")
	}

	raw := strings.TrimSpace(response.Choices[0].Message.Content)
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("sentiment: 解析模型分数失败 %q: %w", raw, err)
	}

	if score < -1 {
		score = -1
	}
	if score > 1 {
		score = 1
	}

	s.logger.Debug("情绪分数生成成功",
		zap.String("symbol", symbol),
		zap.Float64("score", score),
	)

	return score, nil
}

var _ Scorer = (*OpenAIScorer)(nil)
