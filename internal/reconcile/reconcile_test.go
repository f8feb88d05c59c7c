package reconcile

import (
	"testing"
	"time"

	"github.com/alps-lab/alps/internal/paper"
)

const attention = "Attention Is All You Need"

func published(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 17, 57, 34, 0, time.UTC)
}

func TestCleanArXivURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://arxiv.org/abs/1706.03762v5", "https://arxiv.org/abs/1706.03762"},
		{"https://arxiv.org/abs/1706.03762v12", "https://arxiv.org/abs/1706.03762"},
		{"http://arxiv.org/abs/1706.03762", "https://arxiv.org/abs/1706.03762"},
		{"  http://arxiv.org/abs/hep-th/9901001v1\n", "https://arxiv.org/abs/hep-th/9901001"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanArXivURL(tt.input); got != tt.want {
			t.Errorf("CleanArXivURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestArXiv_NewPublication(t *testing.T) {
	p := &paper.Paper{Title: attention}
	hits := []ArXivHit{{
		Title:     "Attention is all you need",
		Authors:   []string{"Ashish Vaswani", "Noam Shazeer"},
		Published: published(2017, time.June, 12),
		ID:        "http://arxiv.org/abs/1706.03762v5",
	}}

	rep := ArXiv(p, hits, 0.7)

	if !rep.Matched {
		t.Fatal("expected a match")
	}
	if !rep.Has(EventNewPublication) || rep.Has(EventUpdated) {
		t.Errorf("events = %+v, want new_publication only (plus authors)", rep.Events)
	}
	if len(p.Publications) != 1 {
		t.Fatalf("got %d publications, want 1", len(p.Publications))
	}
	pub := p.Publications[0]
	if pub.Name != "arXiv" {
		t.Errorf("Name = %q, want arXiv", pub.Name)
	}
	if got := paper.Deref(pub.URL); got != "https://arxiv.org/abs/1706.03762" {
		t.Errorf("URL = %q", got)
	}
	if pub.Year == nil || *pub.Year != 2017 || pub.Month == nil || *pub.Month != 6 || pub.Day == nil || *pub.Day != 12 {
		t.Errorf("date = %v/%v/%v, want 2017/6/12", pub.Year, pub.Month, pub.Day)
	}
	if paper.Deref(p.Authors) != "Vaswani, Shazeer" {
		t.Errorf("Authors = %q", paper.Deref(p.Authors))
	}
	if p.Title != attention {
		t.Errorf("Title rewritten to %q", p.Title)
	}
}

func TestArXiv_ReplacesExistingEntry(t *testing.T) {
	oldURL := "https://arxiv.org/abs/1706.03762v3"
	p := &paper.Paper{
		Title:   attention,
		Authors: paper.String("Vaswani"),
		Publications: []paper.Publication{
			{Name: "NeurIPS", Year: paper.Int(2017)},
			{Name: "arXiv", URL: &oldURL, Year: paper.Int(2017), Month: paper.Int(6), Day: paper.Int(1), BibTeX: paper.String("@misc{stale}")},
		},
	}
	hits := []ArXivHit{{
		Title:     attention,
		Published: published(2017, time.June, 12),
		ID:        "http://arxiv.org/abs/1706.03762v5",
	}}

	rep := ArXiv(p, hits, 0.7)

	if !rep.Has(EventUpdated) {
		t.Errorf("expected updated event, got %+v", rep.Events)
	}
	if rep.Has(EventNewPublication) {
		t.Errorf("unexpected new_publication event")
	}
	if len(p.Publications) != 2 {
		t.Fatalf("got %d publications, want 2", len(p.Publications))
	}
	pub := p.Publications[1]
	if paper.Deref(pub.URL) != "https://arxiv.org/abs/1706.03762" {
		t.Errorf("URL = %q", paper.Deref(pub.URL))
	}
	if pub.BibTeX != nil {
		t.Errorf("arXiv entry should be replaced wholesale, bibtex kept: %q", *pub.BibTeX)
	}
	if *pub.Day != 12 {
		t.Errorf("Day = %d, want 12", *pub.Day)
	}
}

func TestArXiv_SameURLNoEvent(t *testing.T) {
	p := &paper.Paper{
		Title:   attention,
		Authors: paper.String("Vaswani"),
		Publications: []paper.Publication{
			{Name: "arXiv", URL: paper.String("https://arxiv.org/abs/1706.03762")},
		},
	}
	hits := []ArXivHit{{Title: attention, Published: published(2017, time.June, 12), ID: "http://arxiv.org/abs/1706.03762v7"}}

	rep := ArXiv(p, hits, 0.7)

	if !rep.Matched {
		t.Fatal("expected a match")
	}
	if rep.Changed() {
		t.Errorf("expected no events, got %+v", rep.Events)
	}
	if *p.Publications[0].Year != 2017 {
		t.Error("arXiv entry should still be refreshed")
	}
}

func TestArXiv_NoMatchLeavesRecordUnchanged(t *testing.T) {
	p := &paper.Paper{Title: attention}
	hits := []ArXivHit{{Title: "Deep Residual Learning for Image Recognition", Authors: []string{"Kaiming He"}, Published: published(2015, time.December, 10), ID: "http://arxiv.org/abs/1512.03385v1"}}

	rep := ArXiv(p, hits, 0.7)

	if rep.Matched || rep.Changed() {
		t.Errorf("expected no match, got %+v", rep)
	}
	if p.Authors != nil || len(p.Publications) != 0 {
		t.Errorf("record modified: %+v", p)
	}
}

func TestArXiv_FirstMatchWins(t *testing.T) {
	p := &paper.Paper{Title: attention}
	hits := []ArXivHit{
		{Title: "Unrelated Paper About Graphs", ID: "http://arxiv.org/abs/0000.00001v1", Published: published(2000, time.January, 1)},
		{Title: "Attention Is All You Need (extended)", ID: "http://arxiv.org/abs/1111.11111v1", Published: published(2018, time.January, 1)},
		{Title: attention, ID: "http://arxiv.org/abs/1706.03762v5", Published: published(2017, time.June, 12)},
	}

	rep := ArXiv(p, hits, 0.7)

	if rep.MatchedTitle != hits[1].Title {
		t.Errorf("matched %q, want first qualifying hit %q", rep.MatchedTitle, hits[1].Title)
	}
	if got := paper.Deref(p.Publications[0].URL); got != "https://arxiv.org/abs/1111.11111" {
		t.Errorf("URL = %q, want the first qualifying hit's", got)
	}
}

func TestArXiv_MissingDateSkipsPublication(t *testing.T) {
	p := &paper.Paper{Title: attention}
	hits := []ArXivHit{{Title: attention, Authors: []string{"Ashish Vaswani"}, ID: "http://arxiv.org/abs/1706.03762v5"}}

	rep := ArXiv(p, hits, 0.7)

	if len(p.Publications) != 0 {
		t.Errorf("expected no publication without a date, got %+v", p.Publications)
	}
	if !rep.Has(EventAuthors) {
		t.Error("authors should still be filled")
	}
}

func TestAuthors_NeverOverwritten(t *testing.T) {
	existing := []*string{paper.String("Original, Authors"), paper.String("X")}
	for _, authors := range existing {
		want := *authors
		p := &paper.Paper{Title: attention, Authors: authors}

		ArXiv(p, []ArXivHit{{Title: attention, Authors: []string{"Someone Else"}, Published: published(2017, time.June, 12), ID: "http://arxiv.org/abs/1706.03762v1"}}, 0.7)
		DBLP(p, []DBLPHit{{Title: attention, Authors: []string{"Another Person"}, Venue: "NeurIPS", Year: "2017"}}, 0.6, nil, nil)

		if *p.Authors != want {
			t.Errorf("authors overwritten: %q, want %q", *p.Authors, want)
		}
	}
}

func TestAuthors_EmptyStringIsFilled(t *testing.T) {
	blank := "  "
	p := &paper.Paper{Title: attention, Authors: &blank}
	rep := DBLP(p, []DBLPHit{{Title: attention, Authors: []string{"Ashish Vaswani"}, Venue: "NeurIPS"}}, 0.6, nil, nil)

	if paper.Deref(p.Authors) != "Vaswani" {
		t.Errorf("Authors = %q, want Vaswani", paper.Deref(p.Authors))
	}
	if !rep.Has(EventAuthors) {
		t.Error("expected authors event")
	}
}

func TestDBLP_CoRRSkipped(t *testing.T) {
	p := &paper.Paper{Title: attention}
	hits := []DBLPHit{
		{Title: attention, Authors: []string{"Ashish Vaswani"}, Venue: "CoRR", Year: "2017", Key: "journals/corr/VaswaniSPUJGKP17"},
	}

	rep := DBLP(p, hits, 0.6, nil, nil)

	if rep.Matched || rep.Changed() {
		t.Errorf("CoRR hit should be skipped, got %+v", rep)
	}
	if p.Authors != nil || len(p.Publications) != 0 {
		t.Errorf("record modified by skipped hit: %+v", p)
	}
}

func TestDBLP_SkipsFilteredThenTakesNext(t *testing.T) {
	p := &paper.Paper{Title: attention}
	hits := []DBLPHit{
		{Title: attention, Venue: "CoRR", Key: "journals/corr/X"},
		{Title: attention, Venue: "", Key: "empty/venue"},
		{Title: "Attention is All you Need.", Venue: "NIPS", Year: "2017", Key: "conf/nips/VaswaniSPUJGKP17", URL: "https://proceedings.neurips.cc/paper/7181"},
	}

	rep := DBLP(p, hits, 0.6, nil, nil)

	if !rep.Has(EventNewPublication) {
		t.Fatalf("expected new publication, got %+v", rep.Events)
	}
	if len(p.Publications) != 1 || p.Publications[0].Name != "NIPS" {
		t.Fatalf("publications = %+v", p.Publications)
	}
	if paper.Deref(p.Publications[0].DBLPKey) != "conf/nips/VaswaniSPUJGKP17" {
		t.Errorf("DBLPKey = %q", paper.Deref(p.Publications[0].DBLPKey))
	}
	if *p.Publications[0].Year != 2017 {
		t.Errorf("Year = %d", *p.Publications[0].Year)
	}
}

func TestDBLP_FillsOnlyBibTeX(t *testing.T) {
	p := &paper.Paper{
		Title:   attention,
		Authors: paper.String("Vaswani"),
		Publications: []paper.Publication{
			{Name: "NeurIPS", DBLPKey: paper.String("conf/nips/X20"), URL: paper.String("https://example.org/kept")},
		},
	}
	hits := []DBLPHit{{
		Title:  attention,
		Venue:  "NeurIPS",
		Key:    "conf/nips/VaswaniSPUJGKP17",
		URL:    "https://example.org/other",
		BibTeX: "@inproceedings{DBLP:conf/nips/VaswaniSPUJGKP17}",
	}}

	rep := DBLP(p, hits, 0.6, nil, nil)

	pub := p.Publications[0]
	if paper.Deref(pub.DBLPKey) != "conf/nips/X20" {
		t.Errorf("dblp_key overwritten: %q", paper.Deref(pub.DBLPKey))
	}
	if paper.Deref(pub.URL) != "https://example.org/kept" {
		t.Errorf("url overwritten: %q", paper.Deref(pub.URL))
	}
	if paper.Deref(pub.BibTeX) != hits[0].BibTeX {
		t.Errorf("bibtex = %q, want filled", paper.Deref(pub.BibTeX))
	}
	if !rep.Has(EventUpdated) || rep.Has(EventNewPublication) {
		t.Errorf("events = %+v, want updated", rep.Events)
	}
	if len(p.Publications) != 1 {
		t.Errorf("got %d publications, want 1", len(p.Publications))
	}
}

func TestDBLP_PopulatedFieldsByteIdentical(t *testing.T) {
	url, key, bib := "https://a.example/x", "conf/x/Y", "@article{y,\n  title={Y}\n}"
	p := &paper.Paper{
		Title:        attention,
		Publications: []paper.Publication{{Name: "ICML", URL: &url, DBLPKey: &key, BibTeX: &bib}},
	}
	hits := []DBLPHit{{Title: attention, Venue: "icml", URL: "https://other", Key: "other/key", BibTeX: "@other{}"}}

	rep := DBLP(p, hits, 0.6, nil, nil)

	pub := p.Publications[0]
	if *pub.URL != url || *pub.DBLPKey != key || *pub.BibTeX != bib {
		t.Errorf("populated fields changed: %+v", pub)
	}
	if rep.Has(EventUpdated) || rep.Has(EventNewPublication) {
		t.Errorf("expected no publication events, got %+v", rep.Events)
	}
}

func TestDBLP_CaseInsensitiveVenue(t *testing.T) {
	p := &paper.Paper{Title: attention, Publications: []paper.Publication{{Name: "neurips"}}}

	DBLP(p, []DBLPHit{{Title: attention, Venue: "NeurIPS", Key: "k"}}, 0.6, nil, nil)

	if len(p.Publications) != 1 {
		t.Fatalf("got %d publications, want 1", len(p.Publications))
	}
	if p.Publications[0].Name != "neurips" {
		t.Errorf("existing venue name changed to %q", p.Publications[0].Name)
	}
	if paper.Deref(p.Publications[0].DBLPKey) != "k" {
		t.Error("dblp_key not filled")
	}
}

func TestDBLP_UnparsableYearIsAbsent(t *testing.T) {
	p := &paper.Paper{Title: attention}

	rep := DBLP(p, []DBLPHit{{Title: attention, Venue: "ICLR", Year: "forthcoming"}}, 0.6, nil, nil)

	if !rep.Has(EventNewPublication) {
		t.Fatal("expected new publication")
	}
	if p.Publications[0].Year != nil {
		t.Errorf("Year = %d, want nil", *p.Publications[0].Year)
	}
	if p.Publications[0].URL != nil || p.Publications[0].BibTeX != nil {
		t.Error("absent hit fields should stay absent")
	}
}

func TestDBLP_Aliases(t *testing.T) {
	p := &paper.Paper{Title: attention, Publications: []paper.Publication{{Name: "NeurIPS"}}}
	aliases := NewVenueAliases(DefaultVenueAliases)

	DBLP(p, []DBLPHit{{Title: attention, Venue: "Advances in Neural Information Processing Systems", Key: "k"}}, 0.6, nil, aliases)

	if len(p.Publications) != 1 {
		t.Fatalf("alias should resolve to existing entry, got %+v", p.Publications)
	}
	if paper.Deref(p.Publications[0].DBLPKey) != "k" {
		t.Error("dblp_key not filled through alias")
	}
}

func TestDBLP_AliasedVenueMatchesLongName(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		venue    string
	}{
		{"long name on both sides", "Mathematical Programming", "Mathematical Programming"},
		{"long name in record, short from hit", "Mathematical Programming", "Math. Program."},
		{"other long form in record", "Neural Information Processing Systems", "Advances in Neural Information Processing Systems"},
	}
	aliases := NewVenueAliases(DefaultVenueAliases)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &paper.Paper{Title: attention, Publications: []paper.Publication{{Name: tt.existing}}}

			rep := DBLP(p, []DBLPHit{{Title: attention, Venue: tt.venue, Key: "journals/mp/X20"}}, 0.6, nil, aliases)

			if len(p.Publications) != 1 {
				t.Fatalf("got %d publications, want 1: %+v", len(p.Publications), p.Publications)
			}
			if p.Publications[0].Name != tt.existing {
				t.Errorf("Name = %q, want %q", p.Publications[0].Name, tt.existing)
			}
			if paper.Deref(p.Publications[0].DBLPKey) != "journals/mp/X20" {
				t.Error("dblp_key not filled on existing entry")
			}
			if rep.Has(EventNewPublication) || !rep.Has(EventUpdated) {
				t.Errorf("events = %+v, want one updated", rep.Events)
			}
		})
	}
}

func TestVenueAliases_FindPublication(t *testing.T) {
	aliases := NewVenueAliases(DefaultVenueAliases)
	p := &paper.Paper{Title: attention, Publications: []paper.Publication{
		{Name: "arXiv"},
		{Name: "Mathematical Programming"},
	}}

	if pub := aliases.FindPublication(p, "MATHEMATICAL PROGRAMMING"); pub != &p.Publications[1] {
		t.Errorf("raw name lookup = %v", pub)
	}
	if pub := aliases.FindPublication(p, "Math. Program."); pub != &p.Publications[1] {
		t.Errorf("short name lookup = %v", pub)
	}
	if pub := aliases.FindPublication(p, "ICML"); pub != nil {
		t.Errorf("unknown venue = %+v, want nil", pub)
	}
	if pub := aliases.FindPublication(p, ""); pub != nil {
		t.Errorf("empty venue = %+v, want nil", pub)
	}
	var none VenueAliases
	if pub := none.FindPublication(p, "Math. Program."); pub != nil {
		t.Errorf("nil aliases = %+v, want nil", pub)
	}
}

func TestDBLP_CustomFilter(t *testing.T) {
	p := &paper.Paper{Title: attention}
	onlyJournals := func(v string) bool { return v == "J. ACM" }

	rep := DBLP(p, []DBLPHit{{Title: attention, Venue: "STOC"}}, 0.6, onlyJournals, nil)

	if rep.Matched {
		t.Error("custom filter should reject STOC")
	}
}

func TestUniqueVenuesAfterRepeatedReconciliation(t *testing.T) {
	p := &paper.Paper{Title: attention}
	arx := []ArXivHit{{Title: attention, Published: published(2017, time.June, 12), ID: "http://arxiv.org/abs/1706.03762v5"}}
	dblp := []DBLPHit{{Title: attention, Venue: "NeurIPS", Year: "2017", Key: "conf/nips/V17"}}
	upper := []DBLPHit{{Title: attention, Venue: "NEURIPS", Year: "2017", Key: "conf/nips/V17b"}}

	for range 3 {
		ArXiv(p, arx, 0.7)
		DBLP(p, dblp, 0.6, nil, nil)
		DBLP(p, upper, 0.6, nil, nil)
	}

	seen := map[string]int{}
	for _, pub := range p.Publications {
		seen[paper.VenueKey(pub.Name)]++
	}
	for venue, n := range seen {
		if n != 1 {
			t.Errorf("venue %q appears %d times", venue, n)
		}
	}
	if len(p.Publications) != 2 {
		t.Errorf("got %d publications, want 2", len(p.Publications))
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestSelect(t *testing.T) {
	hits := []string{"nothing alike", "Attention Is All You Need", attention}
	id := func(s string) string { return s }

	i, score := Select(attention, hits, 0.7, id, nil)
	if i != 1 || score != 1 {
		t.Errorf("Select() = %d, %v; want 1, 1", i, score)
	}

	i, _ = Select(attention, hits, 0.7, id, func(s string) bool { return s == "nothing alike" })
	if i != -1 {
		t.Errorf("Select() with rejecting filter = %d, want -1", i)
	}

	i, _ = Select(attention, nil, 0.7, id, nil)
	if i != -1 {
		t.Errorf("Select() on no hits = %d, want -1", i)
	}
}

func TestArXivID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1706.03762", "1706.03762"},
		{"1706.03762v5", "1706.03762"},
		{"https://arxiv.org/abs/1706.03762v5", "1706.03762"},
		{"http://arxiv.org/pdf/1706.03762v2.pdf", "1706.03762"},
		{"arXiv:1706.03762", "1706.03762"},
		{"https://arxiv.org/abs/hep-th/9901001v1", "hep-th/9901001"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := ArXivID(tt.input); got != tt.want {
			t.Errorf("ArXivID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFillArXivID(t *testing.T) {
	t.Run("from publication url", func(t *testing.T) {
		p := &paper.Paper{Title: attention, Publications: []paper.Publication{
			{Name: "arXiv", URL: paper.String("https://arxiv.org/abs/1706.03762")},
		}}
		rep := FillArXivID(p)
		if !rep.Has(EventIdentifier) {
			t.Fatalf("events = %+v, want identifier_filled", rep.Events)
		}
		if got := paper.Deref(p.ArXiv); got != "1706.03762" {
			t.Errorf("arxiv = %q, want 1706.03762", got)
		}
	})

	t.Run("existing value kept", func(t *testing.T) {
		p := &paper.Paper{Title: attention, ArXiv: paper.String("1706.99999"), Publications: []paper.Publication{
			{Name: "arXiv", URL: paper.String("https://arxiv.org/abs/1706.03762")},
		}}
		if rep := FillArXivID(p); rep.Changed() {
			t.Errorf("events = %+v, want none", rep.Events)
		}
		if got := paper.Deref(p.ArXiv); got != "1706.99999" {
			t.Errorf("arxiv = %q, want unchanged", got)
		}
	})

	t.Run("no arxiv publication", func(t *testing.T) {
		p := &paper.Paper{Title: attention}
		if rep := FillArXivID(p); rep.Matched || p.ArXiv != nil {
			t.Errorf("FillArXivID changed a record without an arXiv publication")
		}
	})
}

func TestMergeS2_FillIfAbsent(t *testing.T) {
	const id = "204e3073870fae3d05bcbc2f6a8e263d9b72e776"
	hit := S2Hit{PaperID: id, Title: "Attention is All you Need", ArXivID: "1706.03762"}

	t.Run("fills both", func(t *testing.T) {
		p := &paper.Paper{Title: attention}
		rep := MergeS2(p, hit, 0)
		if rep.Count(EventIdentifier) != 2 {
			t.Fatalf("events = %+v, want two identifier_filled", rep.Events)
		}
		if rep.Score != 1 {
			t.Errorf("Score = %v, want title score 1", rep.Score)
		}
		if paper.Deref(p.S2ID) != id || paper.Deref(p.ArXiv) != "1706.03762" {
			t.Errorf("s2_id = %q, arxiv = %q", paper.Deref(p.S2ID), paper.Deref(p.ArXiv))
		}
	})

	t.Run("keeps populated fields", func(t *testing.T) {
		p := &paper.Paper{Title: attention, S2ID: paper.String(S2Unresolvable), ArXiv: paper.String("1706.03762")}
		if rep := MergeS2(p, hit, 0.9); rep.Changed() {
			t.Errorf("events = %+v, want none", rep.Events)
		}
		if got := paper.Deref(p.S2ID); got != S2Unresolvable {
			t.Errorf("s2_id = %q, want %q", got, S2Unresolvable)
		}
	})
}

func TestSelectS2_SkipsHitsWithoutID(t *testing.T) {
	p := &paper.Paper{Title: attention}
	hits := []S2Hit{
		{Title: attention},
		{PaperID: "abc", Title: "Something else entirely"},
		{PaperID: "def", Title: attention},
	}
	i, score := SelectS2(p, hits, 0.8)
	if i != 2 || score != 1 {
		t.Errorf("SelectS2() = (%d, %v), want (2, 1)", i, score)
	}
}
