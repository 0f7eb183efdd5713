package researchserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_research/internal/engine"
	"github.com/anatolykoptev/go_research/internal/kb"
	"github.com/anatolykoptev/go_research/internal/toolutil"
)

type KBSearchInput struct {
	Query string `json:"query" jsonschema:"What to look for in the knowledge base"`
	K     int    `json:"k,omitempty" jsonschema:"Chunks to return (default 5, max 20)"`
}

type KBSearchOutput struct {
	Query string   `json:"query"`
	Count int      `json:"count"`
	Hits  []kb.Hit `json:"hits"`
}

type KBAskInput struct {
	Question string `json:"question" jsonschema:"Question to answer from the knowledge base"`
	K        int    `json:"k,omitempty" jsonschema:"Chunks to ground the answer on (default 8, max 20)"`
}

type KBDocumentsInput struct{}

type KBDocumentsOutput struct {
	Count     int           `json:"count"`
	Documents []kb.Document `json:"documents"`
}

func registerKBSearch(server *mcp.Server, ix Retriever) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "kb_search",
		Description: "Semantic search over everything ingested by search_and_embed. Returns the most similar text chunks with their source URL or file and a similarity score.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input KBSearchInput) (*mcp.CallToolResult, KBSearchOutput, error) {
		if err := toolutil.Required("query", input.Query); err != nil {
			return nil, KBSearchOutput{}, err
		}
		hits, err := ix.Search(ctx, input.Query, toolutil.Bound(input.K, 5, 20))
		if err != nil {
			return nil, KBSearchOutput{}, fmt.Errorf("kb search: %w", err)
		}
		if hits == nil {
			hits = []kb.Hit{}
		}
		return nil, KBSearchOutput{Query: input.Query, Count: len(hits), Hits: hits}, nil
	})
}

func registerKBAsk(server *mcp.Server, ix Retriever) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "kb_ask",
		Description: "Answer a question using only the knowledge base. Returns an answer with numbered facts citing the retrieved chunks. Requires LLM_API_KEY.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input KBAskInput) (*mcp.CallToolResult, *kb.Answer, error) {
		if err := toolutil.Required("question", input.Question); err != nil {
			return nil, nil, err
		}
		ans, err := ix.Ask(ctx, input.Question, toolutil.Bound(input.K, 8, 20))
		if errors.Is(err, engine.ErrLLMDisabled) {
			return nil, nil, errors.New("kb_ask is unavailable: no LLM configured (set LLM_API_KEY)")
		}
		if err != nil {
			return nil, nil, fmt.Errorf("kb ask: %w", err)
		}
		return nil, ans, nil
	})
}

func registerKBDocuments(server *mcp.Server, ix Retriever) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "kb_documents",
		Description: "List every URL and transcript file in the knowledge base with its content type, title, chunk count and ingestion time.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ KBDocumentsInput) (*mcp.CallToolResult, KBDocumentsOutput, error) {
		docs, err := ix.Documents(ctx)
		if err != nil {
			return nil, KBDocumentsOutput{}, fmt.Errorf("kb documents: %w", err)
		}
		if docs == nil {
			docs = []kb.Document{}
		}
		return nil, KBDocumentsOutput{Count: len(docs), Documents: docs}, nil
	})
}
