package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"candlehist/pkg/logger"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout 数据源请求的默认超时
const DefaultTimeout = 20 * time.Second

// HTTPClient 数据源共用的HTTP取数客户端
// 同步阻塞、固定超时、不重试；传输层错误翻译为本包错误分类
type HTTPClient struct {
	client    *http.Client
	userAgent string
	log       *logrus.Entry
}

// NewHTTPClient 创建取数客户端
func NewHTTPClient(timeout time.Duration, userAgent string) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: timeout,
		},
		userAgent: userAgent,
		log:       logger.WithComponent("HTTPClient"),
	}
}

// Get 请求URL并返回响应体
// 网络错误/超时 → ErrDownloadFailed；非200 → ErrRequestingParam
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	c.log.Debugf("getting url: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrDownloadFailed, err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrDownloadFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP status %d", ErrRequestingParam, resp.StatusCode)
	}

	return body, nil
}
