package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quanghm/workersai-gateway/internal/openai"
)

// streamChunkSize is measured in runes, not bytes, so a chunk boundary can
// never split a multi-byte character.
const streamChunkSize = 100

// writeStream emits the synthetic SSE sequence for an already-complete
// answer: one role-opening frame, the text in fixed-size delta chunks, a
// terminal frame carrying the finish reason, and the [DONE] sentinel. The
// backend returned the full text before this runs, so no error can occur
// mid-stream.
func writeStream(w http.ResponseWriter, flusher http.Flusher, text, model, completionID string, created int64) {
	chunk := func(choice openai.StreamChoice) {
		frame := openai.StreamChunk{
			ID:      completionID,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   model,
			Choices: []openai.StreamChoice{choice},
		}
		data, err := json.Marshal(frame)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	empty := ""
	chunk(openai.StreamChoice{
		Delta: openai.Delta{Role: "assistant", Content: &empty},
	})

	runes := []rune(text)
	for start := 0; start < len(runes); start += streamChunkSize {
		end := start + streamChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[start:end])
		chunk(openai.StreamChoice{Delta: openai.Delta{Content: &piece}})
	}

	stop := "stop"
	chunk(openai.StreamChoice{FinishReason: &stop})

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}
