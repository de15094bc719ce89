package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestEmbedRequestPinsDimension(t *testing.T) {
	t.Parallel()

	req := embedRequest("some note text")

	if len(req.Input) != 1 {
		t.Fatalf("len(Input) = %d, want 1", len(req.Input))
	}
	if got := req.Input[0].Content[0].Text; got != "some note text" {
		t.Errorf("document text = %q", got)
	}

	cfg, ok := req.Options.(*genai.EmbedContentConfig)
	if !ok {
		t.Fatalf("Options = %T, want *genai.EmbedContentConfig", req.Options)
	}
	if cfg.OutputDimensionality == nil {
		t.Fatal("OutputDimensionality not set; embeddings would come back at the model default width")
	}
	if *cfg.OutputDimensionality != VectorDimension {
		t.Errorf("OutputDimensionality = %d, want %d", *cfg.OutputDimensionality, VectorDimension)
	}
}

func TestVectorDimensionMatchesSchema(t *testing.T) {
	t.Parallel()

	// The notes table declares vector(768); see db/migrations.
	if VectorDimension != 768 {
		t.Errorf("VectorDimension = %d, want 768", VectorDimension)
	}
}
