package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const mb = 1024 * 1024

func TestValidateFile(t *testing.T) {
	maxSize := int64(50 * mb)

	tests := []struct {
		name         string
		fileName     string
		mimeType     string
		sizeBytes    int64
		wantValid    bool
		wantMessage  string
		wantWarnings int
	}{
		{
			name:      "普通 PDF 文件通过校验",
			fileName:  "manual.pdf",
			mimeType:  "application/pdf",
			sizeBytes: 2 * mb,
			wantValid: true,
		},
		{
			name:        "文件名为空",
			fileName:    "   ",
			mimeType:    "text/plain",
			sizeBytes:   100,
			wantValid:   false,
			wantMessage: "file name is required",
		},
		{
			name:        "文件内容为空",
			fileName:    "empty.txt",
			mimeType:    "text/plain",
			sizeBytes:   0,
			wantValid:   false,
			wantMessage: "file is empty",
		},
		{
			name:         "不支持提取的类型仅告警",
			fileName:     "photo.png",
			mimeType:     "image/png",
			sizeBytes:    1 * mb,
			wantValid:    true,
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateFile(tt.fileName, tt.mimeType, tt.sizeBytes, maxSize)
			assert.Equal(t, tt.wantValid, result.IsValid)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, result.Message)
			}
			assert.Len(t, result.Warnings, tt.wantWarnings)
		})
	}
}

func TestValidateFileTooLarge(t *testing.T) {
	result := ValidateFile("huge.png", "image/png", 100*mb, 50*mb)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Message, "too large")
	assert.Contains(t, result.Message, "100MB")
	assert.Contains(t, result.Message, "50MB")
}

func TestValidateFileLargeButAllowed(t *testing.T) {
	result := ValidateFile("big.pdf", "application/pdf", 30*mb, 50*mb)

	assert.True(t, result.IsValid)
	if assert.Len(t, result.Warnings, 1) {
		assert.Contains(t, result.Warnings[0], "may take longer")
	}
}
