// model/blocks.go
package model

import (
	"encoding/json"
	"fmt"

	"github.com/cleo-edu/cleo_api/shared"
)

// Variant payloads carried in ContentBlock.Data, discriminated by
// ContentBlock.Type. Authoring requests decode against these shapes so a
// malformed payload is rejected before it reaches the catalog.

type TextBlockData struct {
	Body string `json:"body"`
}

type TableBlockData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type DefinitionBlockData struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Example    string `json:"example,omitempty"`
}

type QuestionBlockData struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Answer   string   `json:"answer,omitempty"`
	Hint     string   `json:"hint,omitempty"`
}

type DiagramBlockData struct {
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
	AltText     string `json:"alt_text,omitempty"`
}

type WorkedExampleBlockData struct {
	Problem string   `json:"problem"`
	Steps   []string `json:"steps"`
	Answer  string   `json:"answer,omitempty"`
}

type WritingBoxBlockData struct {
	Prompt    string `json:"prompt"`
	WordLimit int    `json:"word_limit,omitempty"`
}

type CodeExampleBlockData struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Output   string `json:"output,omitempty"`
}

type QuoteAnalysisBlockData struct {
	Quote    string `json:"quote"`
	Source   string `json:"source,omitempty"`
	Analysis string `json:"analysis,omitempty"`
}

// DecodeBlockData validates raw against the payload shape for blockType.
func DecodeBlockData(blockType string, raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty block data")
	}

	var dest interface{}
	switch blockType {
	case shared.BlockTypeText:
		dest = &TextBlockData{}
	case shared.BlockTypeTable:
		dest = &TableBlockData{}
	case shared.BlockTypeDefinition:
		dest = &DefinitionBlockData{}
	case shared.BlockTypeQuestion:
		dest = &QuestionBlockData{}
	case shared.BlockTypeDiagram:
		dest = &DiagramBlockData{}
	case shared.BlockTypeWorkedExample:
		dest = &WorkedExampleBlockData{}
	case shared.BlockTypeWritingBox:
		dest = &WritingBoxBlockData{}
	case shared.BlockTypeCodeExample:
		dest = &CodeExampleBlockData{}
	case shared.BlockTypeQuoteAnalysis:
		dest = &QuoteAnalysisBlockData{}
	default:
		return nil, fmt.Errorf("unknown block type: %s", blockType)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return nil, fmt.Errorf("invalid %s block data: %w", blockType, err)
	}
	return dest, nil
}
