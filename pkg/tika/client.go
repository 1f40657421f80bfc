// Package tika 提供了一个与 Apache Tika 服务器交互的客户端，
// 以及按 MIME 类型判断文件是否可处理的分类器。
package tika

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"field-smart-go/internal/config"
)

// processableTypes 列出了支持文本提取的 MIME 类型。
var processableTypes = map[string]bool{
	"text/plain":      true,
	"text/markdown":   true,
	"text/csv":        true,
	"text/html":       true,
	"application/pdf": true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"application/rtf": true,
	"application/json": true,
}

// CanProcess 判断指定 MIME 类型的文件是否支持文本提取。
func CanProcess(mimeType string) bool {
	return processableTypes[normalizeMime(mimeType)]
}

// IsPlainText 判断该 MIME 类型的内容是否可以直接作为文本使用，
// 无需经过 Tika 提取。
func IsPlainText(mimeType string) bool {
	m := normalizeMime(mimeType)
	return strings.HasPrefix(m, "text/") || m == "application/json"
}

// normalizeMime 去掉 charset 等参数，只保留主类型。
func normalizeMime(mimeType string) string {
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// Client 是 Tika 服务器的客户端。
type Client struct {
	serverURL string
}

// NewClient 创建一个新的 Tika 客户端实例。
func NewClient(cfg config.TikaConfig) *Client {
	return &Client{serverURL: cfg.ServerURL}
}

// ExtractText 将文件内容发送给 Tika 并返回提取出的纯文本。
func (c *Client) ExtractText(fileReader io.Reader, mimeType string) (string, error) {
	req, err := http.NewRequest("PUT", c.serverURL+"/tika", fileReader)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", mimeType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("调用 Tika 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Tika 返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return "", fmt.Errorf("读取 Tika 响应失败: %w", err)
	}

	return buf.String(), nil
}
