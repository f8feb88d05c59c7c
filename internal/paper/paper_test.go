package paper

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Paper
		want error
	}{
		{"ok", Paper{Title: "T", Publications: []Publication{{Name: "arXiv"}, {Name: "ICML"}}}, nil},
		{"no publications", Paper{Title: "T"}, nil},
		{"blank title", Paper{Title: "  "}, ErrMissingTitle},
		{"unnamed venue", Paper{Title: "T", Publications: []Publication{{Name: " "}}}, ErrMissingVenueName},
		{"duplicate venue", Paper{Title: "T", Publications: []Publication{{Name: "NeurIPS"}, {Name: "neurips "}}}, ErrDuplicateVenue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.want == nil && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVenueKey(t *testing.T) {
	if VenueKey(" NeurIPS ") != VenueKey("neurips") {
		t.Error("VenueKey should ignore case and surrounding space")
	}
	if VenueKey("Straße") != VenueKey("STRASSE") {
		t.Error("VenueKey should case-fold")
	}
	if VenueKey("ICML") == VenueKey("ICLR") {
		t.Error("distinct venues share a key")
	}
}

func TestFindPublication(t *testing.T) {
	p := &Paper{Title: "T", Publications: []Publication{{Name: "arXiv"}, {Name: "ICML"}}}

	if i := p.FindPublication("icml"); i != 1 {
		t.Errorf("FindPublication(icml) = %d, want 1", i)
	}
	if i := p.FindPublication("ICLR"); i != -1 {
		t.Errorf("FindPublication(ICLR) = %d, want -1", i)
	}
	if i := p.FindPublication(""); i != -1 {
		t.Errorf("FindPublication(\"\") = %d, want -1", i)
	}

	pub := p.Publication("ARXIV")
	if pub == nil {
		t.Fatal("Publication(ARXIV) = nil")
	}
	pub.URL = String("https://arxiv.org/abs/1")
	if p.Publications[0].URL == nil {
		t.Error("Publication should point into the record")
	}
}

func TestUpsert(t *testing.T) {
	p := &Paper{Title: "T", Publications: []Publication{{Name: "arXiv", URL: String("old")}}}

	if appended := p.Upsert(Publication{Name: "ARXIV", URL: String("new")}); appended {
		t.Error("Upsert of existing venue reported append")
	}
	if len(p.Publications) != 1 || *p.Publications[0].URL != "new" || p.Publications[0].Name != "ARXIV" {
		t.Errorf("publications = %+v", p.Publications)
	}

	if appended := p.Upsert(Publication{Name: "ICML"}); !appended {
		t.Error("Upsert of new venue did not report append")
	}
	if len(p.Publications) != 2 {
		t.Errorf("publications = %+v", p.Publications)
	}
}

func TestHelpers(t *testing.T) {
	if String("  ") != nil {
		t.Error("String(blank) should be nil")
	}
	if s := String("x"); s == nil || *s != "x" {
		t.Error("String(x)")
	}
	if *Int(7) != 7 {
		t.Error("Int(7)")
	}
	if Deref(nil) != "" || Deref(String("y")) != "y" {
		t.Error("Deref")
	}

	var p Paper
	if p.HasAuthors() {
		t.Error("HasAuthors() on empty record")
	}
	p.Authors = String("Vaswani")
	if !p.HasAuthors() {
		t.Error("HasAuthors() = false")
	}
}
