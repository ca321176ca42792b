package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/goccy/go-json"
	"github.com/user/reelpick/internal/model"
	"github.com/user/reelpick/internal/repository"
	"github.com/user/reelpick/internal/utils"
)

const narrationTemp = 0.7

// ErrNarration 最终推荐文本生成失败
var ErrNarration = errors.New("recommendation narration failed")

// ComposeInput 一次推荐的上下文
type ComposeInput struct {
	RequestID    string
	Prompt       string
	Filters      model.FilterSet
	Platforms    []string
	TopMovies    []*model.Movie
	UsedFallback bool
	Stage        Stage
}

// Composition 推荐文本与开销
type Composition struct {
	Text       string
	TokenUsage int
	Elapsed    time.Duration
}

// Composer 让模型从候选中挑选并撰写推荐，并记录审计日志
type Composer struct {
	llm     LanguageModel
	prompts repository.PromptLogStore
	timeout time.Duration
	now     func() time.Time
}

func NewComposer(llm LanguageModel, prompts repository.PromptLogStore, timeout time.Duration) *Composer {
	return &Composer{llm: llm, prompts: prompts, timeout: timeout, now: time.Now}
}

// Compose 无论成功与否都写一条 PromptLog；模型失败时返回 ErrNarration
func (c *Composer) Compose(ctx context.Context, in ComposeInput) (*Composition, error) {
	start := time.Now()
	text, tokens, err := c.narrate(ctx, in)
	out := &Composition{Text: text, TokenUsage: tokens, Elapsed: time.Since(start)}

	entry := &model.PromptLog{
		ID:             in.RequestID,
		PromptText:     in.Prompt,
		Filters:        in.Filters,
		Platforms:      in.Platforms,
		TopMovies:      derefMovies(in.TopMovies),
		FinalResponse:  text,
		UsedFallback:   in.UsedFallback,
		FallbackStage:  string(in.Stage),
		ResponseTimeMs: out.Elapsed.Milliseconds(),
		TokenUsage:     tokens,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if c.prompts != nil {
		if logErr := c.prompts.Append(context.WithoutCancel(ctx), entry); logErr != nil {
			log.Printf("[Composer] 写入提示词日志失败 (%s): %v", in.RequestID, logErr)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNarration, err)
	}
	return out, nil
}

func (c *Composer) narrate(ctx context.Context, in ComposeInput) (string, int, error) {
	if c.llm == nil {
		return "", 0, errors.New("no language model configured")
	}
	movies, err := json.MarshalIndent(derefMovies(in.TopMovies), "", "  ")
	if err != nil {
		return "", 0, err
	}

	system := "You are a movie expert recommending 5 great films based on the user's preferences. " +
		"Today's date is " + c.now().Format("January 2, 2006") + ". Only recommend real, already released movies. " +
		"For each pick mention its ratings, where it is streaming and a one line plot summary using the data provided. " +
		"If some data is missing you may still include the movie and infer its quality from genre, plot or popularity."
	user := fmt.Sprintf("The user prompt was: '%s'\nHere are %d movie options:\n%s", in.Prompt, len(in.TopMovies), movies)

	callCtx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()
	completion, err := c.llm.Generate(callCtx, utils.Prompt{System: system, User: user, Temperature: narrationTemp})
	if err != nil {
		return "", 0, err
	}
	return completion.Text, completion.TotalTokens, nil
}

func derefMovies(movies []*model.Movie) []model.Movie {
	out := make([]model.Movie, 0, len(movies))
	for _, m := range movies {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}
