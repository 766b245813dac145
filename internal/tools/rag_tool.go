package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/rag"
	"github.com/Conversly/lead-response/internal/utils"
)

const SearchToolName = "search_knowledge_base"

var SearchSpec = Spec{
	Name: SearchToolName,
	Desc: "Search the knowledge base for relevant information. Use this tool when you need specific facts about the organization to answer the user's question accurately.",
	Params: []Param{
		{Name: "query", Type: schema.String, Desc: "The search query. Should be a clear, specific question or search phrase.", Required: true},
	},
}

// RAGTool searches the chatbot's knowledge base for voice sessions.
type RAGTool struct {
	Spec
	search    Searcher
	chatbotID string
	topK      int
}

func NewRAGTool(search Searcher, chatbotID string, topK int) *RAGTool {
	return &RAGTool{Spec: SearchSpec, search: search, chatbotID: chatbotID, topK: topK}
}

func (r *RAGTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return r.ToolInfo(), nil
}

func (r *RAGTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	args, err := r.Validate(argumentsInJSON)
	if err != nil {
		return invalidArgs(err).JSON(), nil
	}
	query := args.String("query")

	utils.Zlog.Info("Knowledge search invoked",
		zap.String("chatbot_id", r.chatbotID),
		zap.String("query", query))

	matches := r.search.Retrieve(ctx, r.chatbotID, query, r.topK)
	out := success(rag.NoKnowledgeBase)
	if len(matches) > 0 {
		out.Message = fmt.Sprintf("Found %d relevant passages.", len(matches))
	}
	n := len(matches)
	out.Count = &n
	out.Results = make([]string, 0, n)
	for i, m := range matches {
		out.Results = append(out.Results, fmt.Sprintf("[%d] %s", i+1, m.Content))
	}

	utils.Zlog.Info("Knowledge search completed",
		zap.String("chatbot_id", r.chatbotID),
		zap.Int("results_count", n))

	return out.JSON(), nil
}

var _ tool.InvokableTool = (*RAGTool)(nil)
