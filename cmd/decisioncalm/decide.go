package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rahul/decisioncalm/internal/agent"
	"github.com/rahul/decisioncalm/internal/decision"
	"github.com/rahul/decisioncalm/internal/governance"
	"github.com/rahul/decisioncalm/internal/pipeline"
	"github.com/rahul/decisioncalm/internal/render"
)

var decideFlags struct {
	context string
	options string
	stress  int
	userID  string
	json    bool
	embed   bool
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Build a decision brief",
	Example: `  decisioncalm decide --context "Should I change jobs? I have an offer but I'm comfortable here." \
    --options "Stay, Leave, Negotiate" --stress 8`,
	Args: cobra.NoArgs,
	RunE: runDecide,
}

func init() {
	f := decideCmd.Flags()
	f.StringVar(&decideFlags.context, "context", "", "the decision and its circumstances (10-2000 characters)")
	f.StringVar(&decideFlags.options, "options", "", "the options you are weighing, comma separated")
	f.IntVar(&decideFlags.stress, "stress", 5, "current stress level from 1 to 10")
	f.StringVar(&decideFlags.userID, "user", "", "optional user identifier")
	f.BoolVar(&decideFlags.json, "json", false, "print the brief as JSON")
	f.BoolVar(&decideFlags.embed, "embed", false, "also compute the embedding of context and options")
	_ = decideCmd.MarkFlagRequired("context")
	_ = decideCmd.MarkFlagRequired("options")
}

// decideOutput is the JSON shape printed with --json.
type decideOutput struct {
	Brief     *decision.DecisionBrief `json:"brief"`
	UserID    *string                 `json:"user_id,omitempty"`
	Embedding []float32               `json:"embedding,omitempty"`
}

func runDecide(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := current.cfg

	steps, err := agent.NewSteps(
		current.client,
		agent.NewPromptManager(cfg.Pipeline.PromptsDir, cfg.Pipeline.Language),
		governance.NewCrisisPolicyEngine(),
		current.logger,
		cfg.Pipeline.OptionsMaxTokens,
	)
	if err != nil {
		return newCLIError(exitConfig, err.Error(), err)
	}
	orch := pipeline.NewOrchestrator(pipeline.StagesFrom(steps), cfg.Pipeline.Language, current.logger)

	req := pipeline.Request{
		Context:     decideFlags.context,
		Options:     decideFlags.options,
		StressLevel: decideFlags.stress,
	}
	if decideFlags.userID != "" {
		req.UserID = &decideFlags.userID
	}

	brief, err := orch.RunDecisionPipeline(ctx, req)
	if err != nil {
		return err
	}

	out := decideOutput{Brief: brief, UserID: req.UserID}
	if decideFlags.embed {
		vec, err := current.client.Embed(ctx, req.EmbeddingText())
		if err != nil {
			current.logger.Zap().Warn("embedding skipped", zap.Error(err))
		} else {
			out.Embedding = vec
		}
	}

	if decideFlags.json {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	return writeMarkdown(cmd.OutOrStdout(), out)
}

func writeJSON(w io.Writer, out decideOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeMarkdown(w io.Writer, out decideOutput) error {
	r, err := render.NewTerminal(0)
	if err != nil {
		return err
	}
	text, err := r.Render(render.Markdown(out.Brief))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, text); err != nil {
		return err
	}
	if out.Embedding != nil {
		_, err = fmt.Fprintf(w, "\nEmbedding: %d dimensions\n", len(out.Embedding))
	}
	return err
}
