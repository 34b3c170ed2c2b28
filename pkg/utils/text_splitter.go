package utils

import "unicode"

// SplitText splits a long string into chunks of approximately chunkSize
// runes with an overlap to preserve context at boundaries. Chunk ends are
// nudged back to the nearest whitespace when one is close, so words are not
// cut in half.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	totalLen := len(runes)
	if totalLen <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	// How far back we are willing to move a cut to land on whitespace.
	const breakWindow = 40

	var chunks []string
	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		} else {
			for j := end; j > end-breakWindow && j > i; j-- {
				if unicode.IsSpace(runes[j-1]) {
					end = j
					break
				}
			}
		}

		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}
	}

	return chunks
}
