package main

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Olivia98106/semi-code/internal/annotate"
	"github.com/Olivia98106/semi-code/internal/answer"
	"github.com/Olivia98106/semi-code/internal/extract"
	"github.com/Olivia98106/semi-code/internal/session"
	"github.com/Olivia98106/semi-code/internal/store"
	"github.com/Olivia98106/semi-code/pkg/anthropic"
	"github.com/Olivia98106/semi-code/pkg/grobid"
	"github.com/Olivia98106/semi-code/pkg/openai"
)

// appEnv bundles the wired subsystems every command works with.
type appEnv struct {
	Store     store.Store
	Grobid    grobid.Client
	Extractor *extract.Extractor
	Sessions  *session.Manager
	Engine    *answer.Engine
}

func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	grobidClient := grobid.NewClient(cfg.Grobid.Server,
		grobid.WithTimeout(cfg.Grobid.Timeout()))

	extractor := extract.New(cfg.Extract)
	annotator := annotate.New(grobidClient)
	sessions := session.NewManager(cfg.PDF.Dir, extractor, annotator)

	completer, err := initCompleter()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	engine := answer.NewEngine(completer,
		answer.WithRequestsPerMinute(int(cfg.LLM.RequestsPerMin)))

	return &appEnv{
		Store:     st,
		Grobid:    grobidClient,
		Extractor: extractor,
		Sessions:  sessions,
		Engine:    engine,
	}, nil
}

func initCompleter() (answer.Completer, error) {
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.OpenAIKey == "" {
			return nil, eris.New("openai api key is required (SEMICODE_LLM_OPENAI_API_KEY)")
		}
		client := openai.NewClient(cfg.LLM.OpenAIKey,
			openai.WithBaseURL(cfg.LLM.OpenAIBaseURL))
		return answer.NewOpenAICompleter(client, cfg.LLM.Model, int(cfg.LLM.MaxTokens)), nil
	case "anthropic":
		if cfg.LLM.AnthropicKey == "" {
			return nil, eris.New("anthropic api key is required (SEMICODE_LLM_ANTHROPIC_API_KEY)")
		}
		client := anthropic.NewClient(cfg.LLM.AnthropicKey)
		return answer.NewAnthropicCompleter(client, cfg.LLM.Model, cfg.LLM.MaxTokens), nil
	default:
		return nil, eris.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
}

func (env *appEnv) Close() {
	if err := env.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// openSession loads the document from the catalogue and opens its session.
func (env *appEnv) openSession(ctx context.Context, docID string) (*session.Session, error) {
	doc, err := env.Store.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	return env.Sessions.Open(ctx, *doc)
}

// askDocument runs one question against a document's knowledge base and
// parses the answer. An unreachable model degrades to the recorded fallback
// text instead of aborting the interaction.
func (env *appEnv) askDocument(ctx context.Context, s *session.Session, question string, fullText bool) (answer.ParsedAnswer, error) {
	mode := env.Extractor.DefaultMode()
	if fullText {
		mode = extract.FullText()
	}

	kb, err := s.KB(ctx, mode)
	if err != nil {
		return answer.ParsedAnswer{}, err
	}

	raw, err := env.Engine.Ask(ctx, kb, question)
	if err != nil {
		if errors.Is(err, answer.ErrUpstream) {
			zap.L().Warn("recording fallback answer",
				zap.String("doc_id", s.Doc.DocID), zap.Error(err))
			return answer.ParsedAnswer{Result: answer.Fallback, Raw: answer.Fallback}, nil
		}
		return answer.ParsedAnswer{}, err
	}
	return answer.Parse(raw), nil
}
