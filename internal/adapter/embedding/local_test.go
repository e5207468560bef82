package embedding

import (
	"testing"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)

	a, err := e.EncodeOne("def parse_json(s): ...")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.EncodeOne("def parse_json(s): ...")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text produced different vectors")
		}
	}
}

func TestHashEmbedderUnitNorm(t *testing.T) {
	e := NewHashEmbedder(64)
	vec, err := e.EncodeOne("calculate body mass index")
	if err != nil {
		t.Fatal(err)
	}

	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if sum < 0.9999 || sum > 1.0001 {
		t.Errorf("squared norm = %v, want 1", sum)
	}
}

func TestHashEmbedderSharedVocabularyScoresHigher(t *testing.T) {
	e := NewHashEmbedder(384)

	q, _ := e.EncodeOne("parse a JSON string")
	related, _ := e.EncodeOne("def parse_json(s): ...")
	unrelated, _ := e.EncodeOne("def calculate_bmi(weight, height): ...")

	dot := func(a, b []float32) float64 {
		var s float64
		for i := range a {
			s += float64(a[i]) * float64(b[i])
		}
		return s
	}
	if dot(q, related) <= dot(q, unrelated) {
		t.Errorf("related similarity %v not above unrelated %v", dot(q, related), dot(q, unrelated))
	}
}

func TestHashEmbedderBatchMatchesOne(t *testing.T) {
	e := NewHashEmbedder(64)
	texts := []string{"alpha beta", "gamma delta", "alpha gamma"}

	batch, err := e.EncodeBatch(texts, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("batch returned %d vectors", len(batch))
	}
	for i, text := range texts {
		one, _ := e.EncodeOne(text)
		for j := range one {
			if one[j] != batch[i][j] {
				t.Fatalf("vector %d differs between batch and single encode", i)
			}
		}
	}
}

func TestTermOverlapScorer(t *testing.T) {
	s := &TermOverlapScorer{}

	scores, err := s.Score("parse json", []string{
		"def parse_json(s): ...",
		"def calculate_bmi(weight, height): ...",
		"",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 3 {
		t.Fatalf("got %d scores", len(scores))
	}
	if scores[0] != 1.0 {
		t.Errorf("full overlap score = %v, want 1", scores[0])
	}
	if scores[1] != 0 || scores[2] != 0 {
		t.Errorf("no-overlap scores = %v %v, want 0 0", scores[1], scores[2])
	}
}

func TestTermOverlapScorerEmptyQuery(t *testing.T) {
	s := &TermOverlapScorer{}
	scores, err := s.Score("!!!", []string{"anything"})
	if err != nil {
		t.Fatal(err)
	}
	if scores[0] != 0 {
		t.Errorf("score = %v, want 0", scores[0])
	}
}
