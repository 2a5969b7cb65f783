package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Olivia98106/semi-code/internal/answer"
	"github.com/Olivia98106/semi-code/internal/model"
	"github.com/Olivia98106/semi-code/internal/prompt"
)

var searchOut string

// searchResult is one document's keyword hits, or the reason it was skipped.
type searchResult struct {
	DocID   string
	Hits    []answer.SearchHit
	Skipped string
}

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search every catalogued document for mentions of a keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		keyword := args[0]

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		docs, err := env.Store.ListDocuments(ctx)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("no documents in the catalogue")
			return nil
		}

		results := make([]searchResult, len(docs))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Search.Concurrency)
		for i, doc := range docs {
			g.Go(func() error {
				results[i] = searchDocument(gctx, env, doc, keyword)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		return writeSearchResults(keyword, results)
	},
}

// searchDocument never fails the batch: any per-document error is recorded
// as a skip.
func searchDocument(ctx context.Context, env *appEnv, doc model.Document, keyword string) searchResult {
	res := searchResult{DocID: doc.DocID}

	s, err := env.Sessions.Open(ctx, doc)
	if err != nil {
		res.Skipped = err.Error()
		return res
	}

	kb, err := s.KB(ctx, env.Extractor.DefaultMode())
	if err != nil {
		res.Skipped = err.Error()
		return res
	}

	raw, err := env.Engine.Ask(ctx, kb, prompt.BuildKeywordSearch(keyword))
	if err != nil {
		res.Skipped = err.Error()
		return res
	}

	hits, ok := answer.ParseList(raw)
	if !ok {
		res.Skipped = "answer was not a json array"
		return res
	}
	res.Hits = hits
	return res
}

func writeSearchResults(keyword string, results []searchResult) error {
	var b strings.Builder
	b.WriteString("doc_id\tresult\treference\n")

	var hitDocs, skipped int
	for _, res := range results {
		if res.Skipped != "" {
			skipped++
			zap.L().Warn("document skipped",
				zap.String("doc_id", res.DocID),
				zap.String("reason", res.Skipped))
			continue
		}
		if len(res.Hits) > 0 {
			hitDocs++
		}
		for _, hit := range res.Hits {
			fmt.Fprintf(&b, "%s\t%s\t%s\n", res.DocID, hit.Result, hit.Reference)
		}
	}

	out := b.String()
	if searchOut != "" {
		if err := os.WriteFile(searchOut, []byte(out), 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", searchOut)
	} else {
		fmt.Print(out)
	}

	fmt.Fprintf(os.Stderr, "searched %d documents for %q: %d with hits, %d skipped\n",
		len(results), keyword, hitDocs, skipped)
	return nil
}

func init() {
	searchCmd.Flags().StringVar(&searchOut, "out", "", "write TSV results to a file instead of stdout")
	rootCmd.AddCommand(searchCmd)
}
