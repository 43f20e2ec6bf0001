package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itrecruiter/candidatesearch/internal/lexical"
	"github.com/itrecruiter/candidatesearch/internal/vector"
)

type fakeLexicalSearcher struct {
	hits []lexical.Hit
	err  error
	gotQ lexical.Query
}

func (f *fakeLexicalSearcher) Search(ctx context.Context, index string, q lexical.Query, size int, sourceFields []string) ([]lexical.Hit, error) {
	f.gotQ = q
	return f.hits, f.err
}

type fakeVectorSearcher struct {
	hits         []vector.Hit
	err          error
	gotAllowlist []string
}

func (f *fakeVectorSearcher) Search(ctx context.Context, queryVec []float32, topK int, idAllowlist []string) ([]vector.Hit, error) {
	f.gotAllowlist = idAllowlist
	return f.hits, f.err
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EncodeOne(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func TestEngine_Search_EmptyStageOneReturnsEmpty(t *testing.T) {
	lex := &fakeLexicalSearcher{hits: nil}
	vec := &fakeVectorSearcher{}
	emb := &fakeEmbedder{vec: []float32{0.1}}
	e := New(Config{LexicalIndex: "candidates"}, lex, vec, emb, nil)

	results, err := e.Search(context.Background(), Filters{Role: "Engineer"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_Search_SkipsStageTwoWhenNoSemanticText(t *testing.T) {
	lex := &fakeLexicalSearcher{hits: []lexical.Hit{{ID: "c1"}, {ID: "c2"}}}
	vec := &fakeVectorSearcher{}
	emb := &fakeEmbedder{}
	e := New(Config{LexicalIndex: "candidates"}, lex, vec, emb, nil)

	results, err := e.Search(context.Background(), Filters{MustSkills: []string{"go"}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].CandidateID)
	assert.Nil(t, vec.gotAllowlist)
}

func TestEngine_Search_RunsStageTwoWithAllowlistFromStageOne(t *testing.T) {
	lex := &fakeLexicalSearcher{hits: []lexical.Hit{{ID: "c1"}, {ID: "c2"}}}
	vec := &fakeVectorSearcher{hits: []vector.Hit{{ID: "c2", Score: 0.9}}}
	emb := &fakeEmbedder{vec: []float32{0.1, 0.2}}
	e := New(Config{LexicalIndex: "candidates"}, lex, vec, emb, nil)

	results, err := e.Search(context.Background(), Filters{Role: "Backend Engineer"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, vec.gotAllowlist)
	require.Len(t, results, 2)
	// c2 appears in both lists so it should outrank c1.
	assert.Equal(t, "c2", results[0].CandidateID)
}

func TestEngine_Search_DegradesToLexicalOnlyWhenVectorSearchFails(t *testing.T) {
	lex := &fakeLexicalSearcher{hits: []lexical.Hit{{ID: "c1"}, {ID: "c2"}}}
	vec := &fakeVectorSearcher{err: errors.New("ann store unavailable")}
	emb := &fakeEmbedder{vec: []float32{0.1}}
	e := New(Config{LexicalIndex: "candidates"}, lex, vec, emb, nil)

	results, err := e.Search(context.Background(), Filters{Role: "Backend Engineer"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].CandidateID)
	assert.Equal(t, "c2", results[1].CandidateID)
}

func TestEngine_Search_PropagatesStageOneFailure(t *testing.T) {
	lex := &fakeLexicalSearcher{err: errors.New("lexical store down")}
	vec := &fakeVectorSearcher{}
	emb := &fakeEmbedder{}
	e := New(Config{LexicalIndex: "candidates"}, lex, vec, emb, nil)

	_, err := e.Search(context.Background(), Filters{Role: "Engineer"})
	assert.Error(t, err)
}
