package stats

import (
	"reflect"
	"testing"

	"github.com/alps-lab/alps/internal/paper"
)

func TestSummarize(t *testing.T) {
	papers := []*paper.Paper{
		{
			Title:    "Attention Is All You Need",
			S2ID:     paper.String("204e3073870fae3d05bcbc2f6a8e263d9b72e776"),
			ArXiv:    paper.String("1706.03762"),
			Abstract: paper.String("The dominant sequence transduction models..."),
			Labels:   []string{"transformers", "nlp"},
			Publications: []paper.Publication{
				{Name: "arXiv", Year: paper.Int(2017)},
				{Name: "NeurIPS", Year: paper.Int(2017)},
			},
		},
		{
			Title:  "BERT",
			ArXiv:  paper.String(" "),
			Labels: []string{"nlp"},
			Publications: []paper.Publication{
				{Name: "arxiv", Year: paper.Int(2018)},
				{Name: "NAACL", Year: paper.Int(2019)},
			},
		},
		{
			Title: "Deep Residual Learning",
			Publications: []paper.Publication{
				{Name: "CVPR", Year: paper.Int(2016)},
				{Name: "neurips"},
			},
		},
	}

	s := Summarize(papers, 2)

	if s.Total != 3 {
		t.Errorf("Total = %d, want 3", s.Total)
	}
	if s.WithS2ID != (Coverage{Count: 1, Percent: 33}) {
		t.Errorf("WithS2ID = %+v", s.WithS2ID)
	}
	if s.WithArXiv != (Coverage{Count: 1, Percent: 33}) {
		t.Errorf("WithArXiv = %+v, blank values must not count", s.WithArXiv)
	}
	if s.WithAbstract.Count != 1 {
		t.Errorf("WithAbstract = %+v", s.WithAbstract)
	}

	wantLabels := []Count{{Name: "nlp", Count: 2}, {Name: "transformers", Count: 1}}
	if !reflect.DeepEqual(s.Labels, wantLabels) {
		t.Errorf("Labels = %+v, want %+v", s.Labels, wantLabels)
	}

	wantVenues := []Count{{Name: "NeurIPS", Count: 2}, {Name: "arXiv", Count: 2}}
	if !reflect.DeepEqual(s.TopVenues, wantVenues) {
		t.Errorf("TopVenues = %+v, want %+v", s.TopVenues, wantVenues)
	}

	wantYears := []YearCount{{Year: 2016, Count: 1}, {Year: 2017, Count: 1}, {Year: 2019, Count: 1}}
	if !reflect.DeepEqual(s.Years, wantYears) {
		t.Errorf("Years = %+v, want %+v", s.Years, wantYears)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, DefaultTopVenues)
	if s.Total != 0 || s.WithS2ID.Percent != 0 {
		t.Errorf("Summarize(nil) = %+v", s)
	}
	if s.Labels == nil || s.TopVenues == nil || s.Years == nil {
		t.Errorf("empty summary should have empty, not nil, lists: %+v", s)
	}
}
