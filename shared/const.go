package shared

const (
	ConversationID = "conversation_id"

	BlockTypeText          = "text"
	BlockTypeTable         = "table"
	BlockTypeDefinition    = "definition"
	BlockTypeQuestion      = "question"
	BlockTypeDiagram       = "diagram"
	BlockTypeWorkedExample = "worked_example"
	BlockTypeWritingBox    = "writing_box"
	BlockTypeCodeExample   = "code_example"
	BlockTypeQuoteAnalysis = "quote_analysis"
)

// BlockTypes lists every content block variant the catalog accepts.
var BlockTypes = []string{
	BlockTypeText,
	BlockTypeTable,
	BlockTypeDefinition,
	BlockTypeQuestion,
	BlockTypeDiagram,
	BlockTypeWorkedExample,
	BlockTypeWritingBox,
	BlockTypeCodeExample,
	BlockTypeQuoteAnalysis,
}

func IsValidBlockType(t string) bool {
	for _, bt := range BlockTypes {
		if bt == t {
			return true
		}
	}
	return false
}
