// Package chunker 将长文本切分为带重叠、尽量落在句子/词边界上的分块。
package chunker

import (
	"strings"
	"unicode"
)

// 默认的分块参数，与文件处理管道的配置默认值保持一致。
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 100
)

// Chunk 将 text 切分为若干分块。
// 每个窗口 [start, start+maxChunkSize) 的切点按优先级选取：
//  1. 窗口内最靠右的句子结束符，且其位置必须严格超过窗口中点（含标点）；
//  2. 否则取最靠近窗口末尾的空白符，同样要求严格超过中点（不含空白）；
//  3. 否则在窗口末尾硬切，词中断裂作为最后手段可以接受。
//
// 切出的分块去除首尾空白，为空则不输出。下一个窗口从 end-overlap 开始，
// 步长强制至少为 1，保证 overlap >= maxChunkSize 时也不会死循环。
// 纯函数：相同输入必然产生相同的切分。
func Chunk(text string, maxChunkSize, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	// 整体不超过窗口时直接返回去除空白后的全文
	if len(runes) <= maxChunkSize {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = findBoundary(runes, start, end, maxChunkSize)
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}

		if end >= len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			// 重叠不小于窗口时强制前进一步
			next = start + 1
		}
		if next >= len(runes) {
			break
		}
		start = next
	}
	return chunks
}

// findBoundary 在窗口 [start, rawEnd) 内选取切点，返回切分的终止下标（不含）。
// 中点是开区间下界：恰好落在中点上的边界会被拒绝。
func findBoundary(runes []rune, start, rawEnd, maxChunkSize int) int {
	mid := start + maxChunkSize/2

	for i := rawEnd - 1; i > start; i-- {
		if isSentenceTerminator(runes[i]) {
			if i > mid {
				return i + 1 // 含标点
			}
			break
		}
	}

	for i := rawEnd - 1; i > start; i-- {
		if unicode.IsSpace(runes[i]) {
			if i > mid {
				return i // 不含空白
			}
			break
		}
	}

	return rawEnd
}

func isSentenceTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
