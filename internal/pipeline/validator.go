package pipeline

import (
	"fmt"
	"strings"

	"field-smart-go/pkg/tika"
)

// 超过该大小的文件在校验时附加处理耗时提示。
const largeFileWarnBytes int64 = 20 * 1024 * 1024

// ValidationResult 是文件校验的结果。
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Message  string   `json:"message,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidateFile 在文件进入处理管道之前做基础校验。
// 大小超限是硬错误；大文件与不可提取文本的类型只产生告警，
// 后者在处理阶段才会被拒绝。
func ValidateFile(fileName, mimeType string, sizeBytes, maxSizeBytes int64) ValidationResult {
	if strings.TrimSpace(fileName) == "" {
		return ValidationResult{IsValid: false, Message: "file name is required"}
	}
	if sizeBytes <= 0 {
		return ValidationResult{IsValid: false, Message: "file is empty"}
	}
	if sizeBytes > maxSizeBytes {
		return ValidationResult{
			IsValid: false,
			Message: fmt.Sprintf("file is too large: %dMB exceeds the %dMB limit",
				sizeBytes/(1024*1024), maxSizeBytes/(1024*1024)),
		}
	}

	result := ValidationResult{IsValid: true}
	if sizeBytes > largeFileWarnBytes {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("large file (%dMB): processing may take longer", sizeBytes/(1024*1024)))
	}
	if !tika.CanProcess(mimeType) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("file type %q does not support text extraction and will be skipped by search indexing", mimeType))
	}
	return result
}
