package wire

// InteractionResult is the aggregated, non-streaming view of one
// interaction: produced either directly by a non-streaming call, or by
// folding a stream (see pkg/brainclient's assembler).
type InteractionResult struct {
	InteractionID string
	OutputParts   []ContentPart
	ToolCalls     []AssembledToolCall
	Usage         Usage
	FinishReason  FinishReason
}
