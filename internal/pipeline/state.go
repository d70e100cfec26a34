package pipeline

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Field names one collection of the pipeline state
type Field uint8

const (
	FieldSelected Field = 1 << iota
	FieldDisambiguated
	FieldPotential
	FieldValidated
	FieldVerified
	FieldReport
)

var fieldNames = []struct {
	field Field
	name  string
}{
	{FieldSelected, "selected_contents"},
	{FieldDisambiguated, "disambiguated_contents"},
	{FieldPotential, "potential_claims"},
	{FieldValidated, "validated_claims"},
	{FieldVerified, "verified_claims"},
	{FieldReport, "final_report"},
}

func (f Field) String() string {
	var names []string
	for _, fn := range fieldNames {
		if f&fn.field != 0 {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// State is the document threaded through one run.
// Each collection starts absent and is written at most once, by the graph.
type State struct {
	RunID    string `json:"run_id"`
	RawInput string `json:"raw_input"`

	selected      []model.SelectedContent
	disambiguated []model.DisambiguatedContent
	potential     []model.PotentialClaim
	validated     []model.ValidatedClaim
	verified      []model.VerifiedClaim
	report        *model.FinalReport

	written Field
}

// NewState starts a run over raw
func NewState(raw string) *State {
	return &State{
		RunID:    uuid.NewString(),
		RawInput: raw,
	}
}

// Has reports whether f has been written. An absent field and an empty one
// read the same through the accessors.
func (s *State) Has(f Field) bool {
	return s.written&f == f
}

// Written returns the set of fields written so far
func (s *State) Written() Field {
	return s.written
}

func (s *State) Selected() []model.SelectedContent           { return s.selected }
func (s *State) Disambiguated() []model.DisambiguatedContent { return s.disambiguated }
func (s *State) Potential() []model.PotentialClaim           { return s.potential }
func (s *State) Validated() []model.ValidatedClaim           { return s.validated }
func (s *State) Verified() []model.VerifiedClaim             { return s.verified }
func (s *State) Report() *model.FinalReport                  { return s.report }

// Update is the partial result of one stage. The zero value writes nothing.
type Update struct {
	writes Field

	selected      []model.SelectedContent
	disambiguated []model.DisambiguatedContent
	potential     []model.PotentialClaim
	validated     []model.ValidatedClaim
	verified      []model.VerifiedClaim
	report        *model.FinalReport
}

// NoUpdate leaves the state untouched
var NoUpdate = Update{}

// Writes returns the fields u sets
func (u Update) Writes() Field { return u.writes }

func SelectedUpdate(items []model.SelectedContent) Update {
	return Update{writes: FieldSelected, selected: items}
}

func DisambiguatedUpdate(items []model.DisambiguatedContent) Update {
	return Update{writes: FieldDisambiguated, disambiguated: items}
}

func PotentialUpdate(items []model.PotentialClaim) Update {
	return Update{writes: FieldPotential, potential: items}
}

func ValidatedUpdate(items []model.ValidatedClaim) Update {
	return Update{writes: FieldValidated, validated: items}
}

func VerifiedUpdate(items []model.VerifiedClaim) Update {
	return Update{writes: FieldVerified, verified: items}
}

func ReportUpdate(report *model.FinalReport) Update {
	return Update{writes: FieldReport, report: report}
}

// merge applies u on behalf of a node allowed to write only allowed.
// Writing outside allowed or writing a field twice is an error and leaves s unchanged.
func (s *State) merge(node string, allowed Field, u Update) error {
	if extra := u.writes &^ allowed; extra != 0 {
		return eris.Errorf("pipeline: node %s wrote %s outside its fields (%s)", node, extra, allowed)
	}
	if dup := u.writes & s.written; dup != 0 {
		return eris.Errorf("pipeline: node %s rewrote %s", node, dup)
	}

	if u.writes&FieldSelected != 0 {
		s.selected = u.selected
	}
	if u.writes&FieldDisambiguated != 0 {
		s.disambiguated = u.disambiguated
	}
	if u.writes&FieldPotential != 0 {
		s.potential = u.potential
	}
	if u.writes&FieldValidated != 0 {
		s.validated = u.validated
	}
	if u.writes&FieldVerified != 0 {
		s.verified = u.verified
	}
	if u.writes&FieldReport != 0 {
		s.report = u.report
	}
	s.written |= u.writes
	return nil
}
