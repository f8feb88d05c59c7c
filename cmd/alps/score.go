package main

import (
	"github.com/spf13/cobra"

	"github.com/alps-lab/alps/internal/match"
)

func init() {
	f := scoreCmd.Flags()
	f.Float64("arxiv-threshold", 0.7, "Minimum title score for an arXiv match")
	f.Float64("dblp-threshold", 0.6, "Minimum title score for a DBLP match")
	rootCmd.AddCommand(scoreCmd)
}

var scoreCmd = &cobra.Command{
	Use:   "score <title-a> <title-b>",
	Short: "Show how two titles normalize and score",
	Long: `Show how two titles normalize and score, and whether the score clears
the configured arXiv and DBLP thresholds.

Examples:
  alps score "Attention Is All You Need" "Attention is all you need!"
  alps score --dblp-threshold 0.8 "BERT" "BERT: Pre-training of Deep Bidirectional Transformers"`,
	Args: cobra.ExactArgs(2),
	RunE: runScore,
}

// ScoreResponse is the response for the score command.
type ScoreResponse struct {
	A              string  `json:"a"`
	B              string  `json:"b"`
	Jaccard        float64 `json:"jaccard"`
	EditSimilarity float64 `json:"edit_similarity"`
	Score          float64 `json:"score"`
	ArXivMatch     bool    `json:"arxiv_match"`
	DBLPMatch      bool    `json:"dblp_match"`
}

func runScore(cmd *cobra.Command, args []string) error {
	na, nb := match.Normalize(args[0]), match.Normalize(args[1])
	score := match.Score(args[0], args[1])
	resp := ScoreResponse{
		A:              na,
		B:              nb,
		Jaccard:        match.Jaccard(na, nb),
		EditSimilarity: match.EditSimilarity(na, nb),
		Score:          score,
		ArXivMatch:     score >= cfg.ArXiv.Threshold,
		DBLPMatch:      score >= cfg.DBLP.Threshold,
	}

	if humanOutput {
		outputHuman("a:       %q\n", resp.A)
		outputHuman("b:       %q\n", resp.B)
		outputHuman("jaccard: %.3f\n", resp.Jaccard)
		outputHuman("edit:    %.3f\n", resp.EditSimilarity)
		outputHuman("score:   %.3f (arXiv %s, DBLP %s)\n", resp.Score,
			verdict(resp.ArXivMatch), verdict(resp.DBLPMatch))
		return nil
	}
	return outputJSON(resp)
}

func verdict(ok bool) string {
	if ok {
		return "match"
	}
	return "no match"
}
