package domain_test

import (
	"errors"
	"testing"
	"time"

	"reserve_catalog/internal/domain"
)

func TestUniqueRegions_FirstSeenOrder(t *testing.T) {
	got := domain.UniqueRegions([]string{"North", "South", "North"})
	if len(got) != 2 || got[0] != "North" || got[1] != "South" {
		t.Fatalf("unexpected regions: %v", got)
	}
}

func TestFilterReserves_NameAndRegion(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []domain.ReserveView{
		{ID: "1", Name: "Kedrovaya Pad", Region: "Primorye", CreatedAt: base},
		{ID: "2", Name: "Barguzin", Region: "Buryatia", CreatedAt: base.Add(time.Hour)},
		{ID: "3", Name: "Lazovsky", Region: "Primorye", CreatedAt: base.Add(2 * time.Hour)},
	}

	out := domain.FilterReserves(in, domain.ReserveFilter{Query: "PAD", Region: "all"})
	if len(out) != 1 || out[0].ID != "1" {
		t.Fatalf("name filter: %+v", out)
	}

	out = domain.FilterReserves(in, domain.ReserveFilter{Region: "Primorye", Sort: domain.SortByDateAdded})
	if len(out) != 2 || out[0].ID != "3" || out[1].ID != "1" {
		t.Fatalf("region filter + date sort: %+v", out)
	}

	out = domain.FilterReserves(in, domain.ReserveFilter{Sort: domain.SortByName})
	if out[0].Name != "Barguzin" || out[1].Name != "Kedrovaya Pad" || out[2].Name != "Lazovsky" {
		t.Fatalf("name sort: %+v", out)
	}
	if in[0].ID != "1" {
		t.Fatalf("input slice was reordered")
	}
}

func TestParseSort(t *testing.T) {
	if s, err := domain.ParseSort(""); err != nil || s != domain.SortByName {
		t.Fatalf("default sort: %v %v", s, err)
	}
	if _, err := domain.ParseSort("rating"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReserveInput_Validate(t *testing.T) {
	ok := domain.ReserveInput{
		Name: "Barguzin", Description: "Oldest reserve", Region: "Buryatia",
		YearFounded: 1916, Flora: []string{"Siberian pine"}, Fauna: []string{"Sable"},
	}
	if err := ok.Validate(2026); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	cases := map[string]func(in *domain.ReserveInput){
		"empty name":    func(in *domain.ReserveInput) { in.Name = "  " },
		"empty region":  func(in *domain.ReserveInput) { in.Region = "" },
		"year too old":  func(in *domain.ReserveInput) { in.YearFounded = 999 },
		"future year":   func(in *domain.ReserveInput) { in.YearFounded = 2027 },
		"blank species": func(in *domain.ReserveInput) { in.Fauna = []string{""} },
		"bad latitude":  func(in *domain.ReserveInput) { in.Location = &domain.Location{Latitude: 91} },
	}
	for name, mutate := range cases {
		in := ok
		mutate(&in)
		var ve *domain.ValidationError
		if err := in.Validate(2026); !errors.As(err, &ve) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}

	edge := ok
	edge.YearFounded = 2026
	if err := edge.Validate(2026); err != nil {
		t.Fatalf("current year must be accepted: %v", err)
	}
}

func TestReviewInput_Validate(t *testing.T) {
	for _, r := range []int{0, 6, -1} {
		if err := (domain.ReviewInput{Rating: r, Text: "nice"}).Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("rating %d accepted", r)
		}
	}
	if err := (domain.ReviewInput{Rating: 3, Text: " "}).Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty text accepted")
	}
	if err := (domain.ReviewInput{Rating: 5, Text: "great"}).Validate(); err != nil {
		t.Fatalf("valid review rejected: %v", err)
	}
}
