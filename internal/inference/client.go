package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"omniops/pkg/config"
	"omniops/pkg/logger"
	"omniops/pkg/metrics"
	"omniops/pkg/otel"
	"omniops/pkg/trace"
)

const (
	DefaultURL          = "https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.2"
	defaultMaxNewTokens = 250
	defaultTemperature  = 0.7
)

var (
	errEmptyGeneration = errors.New("inference returned no generated text")
)

// Generator 业务层依赖的接口
type Generator interface {
	Generate(ctx context.Context, prompt, instruction string) Result
}

// Result Generate 的结果；Fallback 为 true 时 Text 来自离线模板或提示信息
type Result struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
}

type Parameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type request struct {
	Inputs     string     `json:"inputs"`
	Parameters Parameters `json:"parameters"`
}

type generation struct {
	GeneratedText string `json:"generated_text"`
}

type Client struct {
	url        string
	apiKey     string
	params     Parameters
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(cfg config.InferenceConfig, log *zap.Logger) *Client {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	params := Parameters{
		MaxNewTokens: cfg.MaxNewTokens,
		Temperature:  defaultTemperature,
	}
	if params.MaxNewTokens <= 0 {
		params.MaxNewTokens = defaultMaxNewTokens
	}
	if cfg.Temperature != nil && *cfg.Temperature >= 0 {
		params.Temperature = *cfg.Temperature
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "inference",
		MaxRequests: 2,                // 半开状态下最多允许2个请求
		Timeout:     30 * time.Second, // 打开状态持续30秒
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		url:        url,
		apiKey:     cfg.APIKey,
		params:     params,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		cb:         cb,
		logger:     log,
	}
}

// Generate 调用推理接口；任何失败都返回离线模板，不返回错误
func (c *Client) Generate(ctx context.Context, prompt, instruction string) Result {
	log := logger.WithTrace(ctx, c.logger)

	if c.apiKey == "" {
		log.Warn("Inference skipped: missing API key")
		metrics.IncrementInferenceFallback("missing_key")
		return Result{Text: MissingKeyMessage, Fallback: true, Reason: "missing_key"}
	}

	ctx, span := otel.StartSpan(ctx, "inference.generate")
	defer span.End()

	fullPrompt := BuildPrompt(prompt, instruction)
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.call(ctx, fullPrompt)
	})
	if err != nil {
		reason := fallbackReason(err)
		span.RecordError(err)
		log.Warn("Inference failed, using fallback",
			zap.String("reason", reason),
			zap.Error(err),
		)
		metrics.IncrementInferenceFallback(reason)
		return Result{Text: Fallback(prompt, instruction), Fallback: true, Reason: reason}
	}

	text := strings.TrimSpace(strings.Replace(out.(string), fullPrompt, "", 1))
	if text == "" {
		metrics.IncrementInferenceFallback("empty")
		return Result{Text: Fallback(prompt, instruction), Fallback: true, Reason: "empty"}
	}
	return Result{Text: text}
}

type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("inference endpoint returned %d: %s", e.code, e.msg)
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decode inference response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func (c *Client) call(ctx context.Context, fullPrompt string) (string, error) {
	start := time.Now()
	body, err := json.Marshal(request{Inputs: fullPrompt, Parameters: c.params})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName, traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordInferenceCallLatency("error", time.Since(start))
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.RecordInferenceCallLatency("error", time.Since(start))
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordInferenceCallLatency(fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
		return "", &statusError{code: resp.StatusCode, msg: errorMessage(raw)}
	}
	metrics.RecordInferenceCallLatency("success", time.Since(start))

	text, err := decodeGeneration(raw)
	if err != nil {
		return "", err
	}
	return text, nil
}

// decodeGeneration 兼容数组 [{generated_text}] 和单个对象两种返回
func decodeGeneration(raw []byte) (string, error) {
	var list []generation
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 || list[0].GeneratedText == "" {
			return "", errEmptyGeneration
		}
		return list[0].GeneratedText, nil
	}

	var single struct {
		generation
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &single); err != nil {
		return "", &decodeError{err: err}
	}
	if single.Error != "" {
		return "", &statusError{code: http.StatusOK, msg: single.Error}
	}
	if single.GeneratedText == "" {
		return "", errEmptyGeneration
	}
	return single.GeneratedText, nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(raw)
}

func fallbackReason(err error) string {
	var se *statusError
	var de *decodeError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, errEmptyGeneration):
		return "empty"
	case errors.As(err, &se):
		return "status"
	case errors.As(err, &de):
		return "decode"
	}
	return "network"
}
